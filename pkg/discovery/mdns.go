package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// Endpoint is a discovered server.
type Endpoint struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string
	ServerInfo
}

// URL returns the websocket URL of the endpoint, preferring the first
// resolved address over the host name.
func (e Endpoint) URL() string {
	host := e.Host
	if len(e.Addresses) > 0 {
		host = e.Addresses[0]
	}
	scheme := "ws"
	if e.TLS {
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, strconv.Itoa(e.Port)),
		Path:   e.Path,
	}
	return u.String()
}

// browseFunc matches zeroconf.Browse.
type browseFunc func(ctx context.Context, service, domain string, entries, removed chan<- *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	// Interface restricts browsing to one network interface.
	Interface string

	Logger *slog.Logger
}

// Resolver browses for servers.
type Resolver struct {
	config ResolverConfig
	logger *slog.Logger
	browse browseFunc
}

// NewResolver creates a resolver.
func NewResolver(config ResolverConfig) *Resolver {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		config: config,
		logger: logger,
		browse: zeroconf.Browse,
	}
}

// Browse streams one Endpoint per newly seen instance until ctx is done.
// Addresses seen on further interfaces are merged into the stored entry;
// an instance whose addresses all disappear may be reported again later.
func (r *Resolver) Browse(ctx context.Context) (<-chan Endpoint, error) {
	out := make(chan Endpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		known := make(map[string]*Endpoint)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep, err := entryToEndpoint(entry)
				if err != nil {
					r.logger.Debug("ignoring advertisement", "instance", entry.Instance, "error", err)
					continue
				}
				if existing, found := known[ep.Instance]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, ep.Addresses)
					continue
				}
				known[ep.Instance] = &ep
				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					removed = nil
					continue
				}
				if existing, found := known[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(known, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := r.browse(ctx, ServiceType, Domain, entries, removed, r.options()...); err != nil {
			r.logger.Warn("mdns browse failed", "error", err)
		}
	}()

	return out, nil
}

// Resolve returns the first server advertising environment, or any server
// when environment is empty. Without a context deadline it gives up after
// DefaultResolveTimeout.
func (r *Resolver) Resolve(ctx context.Context, environment string) (Endpoint, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultResolveTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	found, err := r.Browse(ctx)
	if err != nil {
		return Endpoint{}, err
	}
	for ep := range found {
		if environment == "" || ep.Environment == environment {
			return ep, nil
		}
	}
	if environment != "" {
		return Endpoint{}, fmt.Errorf("%w: environment %q", ErrNotFound, environment)
	}
	return Endpoint{}, ErrNotFound
}

func (r *Resolver) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if r.config.Interface != "" {
		if iface, err := net.InterfaceByName(r.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	return opts
}

// AdvertiserConfig configures an Advertiser.
type AdvertiserConfig struct {
	// Interface restricts the advertisement to one network interface.
	Interface string

	// TTL of the records. Zero uses the zeroconf default.
	TTL time.Duration
}

// Advertiser publishes one server instance.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewAdvertiser creates an advertiser.
func NewAdvertiser(config AdvertiserConfig) *Advertiser {
	return &Advertiser{config: config}
}

// Advertise starts publishing info, replacing any previous advertisement.
func (a *Advertiser) Advertise(info ServerInfo) error {
	if err := ValidateInstanceName(info.Instance); err != nil {
		return err
	}
	if info.Port <= 0 || info.Port > 65535 {
		return fmt.Errorf("invalid port %d", info.Port)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	var ifaces []net.Interface
	if a.config.Interface != "" {
		iface, err := net.InterfaceByName(a.config.Interface)
		if err != nil {
			return fmt.Errorf("interface %q: %w", a.config.Interface, err)
		}
		ifaces = []net.Interface{*iface}
	}

	server, err := zeroconf.Register(info.Instance, ServiceType, Domain, info.Port, EncodeTXT(info), ifaces, opts...)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceType, err)
	}
	a.server = server
	return nil
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

func entryToEndpoint(entry *zeroconf.ServiceEntry) (Endpoint, error) {
	info, err := DecodeTXT(StringsToTXTRecords(entry.Text))
	if err != nil {
		return Endpoint{}, err
	}
	info.Instance = entry.Instance
	info.Port = entry.Port

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return Endpoint{
		Instance:   entry.Instance,
		Host:       entry.HostName,
		Port:       entry.Port,
		Addresses:  addrs,
		ServerInfo: info,
	}, nil
}

func mergeAddresses(existing, more []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, a := range existing {
		seen[a] = true
	}
	for _, a := range more {
		if !seen[a] {
			existing = append(existing, a)
			seen[a] = true
		}
	}
	return existing
}

func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	gone := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		gone[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		gone[ip.String()] = true
	}
	result := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if !gone[a] {
			result = append(result, a)
		}
	}
	return result
}
