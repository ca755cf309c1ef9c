package discovery

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DNS-SD constants.
const (
	ServiceType = "_rtupdates._tcp"
	Domain      = "local."

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// ProtocolVersion is the wire protocol version advertised by servers.
	ProtocolVersion = 1

	// DefaultPath is the websocket path when none is advertised.
	DefaultPath = "/ws"

	// DefaultResolveTimeout bounds Resolve when the context has no deadline.
	DefaultResolveTimeout = 5 * time.Second
)

// TXT record keys.
const (
	TXTKeyPath        = "path"
	TXTKeyTLS         = "tls"
	TXTKeyVersion     = "ver"
	TXTKeyEnvironment = "env"
)

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrNotFound            = errors.New("server not found")
)

// TXTRecordMap holds decoded TXT key/value pairs.
type TXTRecordMap map[string]string

// ServerInfo is what a server advertises.
type ServerInfo struct {
	Instance    string
	Port        int
	Path        string
	TLS         bool
	Version     int
	Environment string
}

// EncodeTXT returns the TXT strings for info, sorted by key.
func EncodeTXT(info ServerInfo) []string {
	txt := TXTRecordMap{
		TXTKeyPath:    info.Path,
		TXTKeyTLS:     "0",
		TXTKeyVersion: strconv.Itoa(info.Version),
	}
	if info.Path == "" {
		txt[TXTKeyPath] = DefaultPath
	}
	if info.TLS {
		txt[TXTKeyTLS] = "1"
	}
	if info.Version == 0 {
		txt[TXTKeyVersion] = strconv.Itoa(ProtocolVersion)
	}
	if info.Environment != "" {
		txt[TXTKeyEnvironment] = info.Environment
	}
	return TXTRecordsToStrings(txt)
}

// DecodeTXT parses the TXT fields of an advertised server. The version is
// required; the other fields fall back to defaults.
func DecodeTXT(txt TXTRecordMap) (ServerInfo, error) {
	info := ServerInfo{Path: DefaultPath}

	v, ok := txt[TXTKeyVersion]
	if !ok {
		return ServerInfo{}, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	ver, err := strconv.Atoi(v)
	if err != nil || ver <= 0 {
		return ServerInfo{}, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyVersion, v)
	}
	info.Version = ver

	if p := txt[TXTKeyPath]; p != "" {
		if !strings.HasPrefix(p, "/") {
			return ServerInfo{}, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyPath, p)
		}
		info.Path = p
	}

	switch txt[TXTKeyTLS] {
	case "", "0":
	case "1":
		info.TLS = true
	default:
		return ServerInfo{}, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyTLS, txt[TXTKeyTLS])
	}

	info.Environment = txt[TXTKeyEnvironment]
	return info, nil
}

// TXTRecordsToStrings formats a map as sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses "key=value" strings. A bare key maps to "".
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// ValidateInstanceName checks that name fits in one DNS label.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidInstanceName, MaxInstanceNameLen)
	}
	return nil
}
