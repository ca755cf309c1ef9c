// Package interactive provides the interactive command-line interface
// for rt-client.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/waqiti/realtime-go/pkg/events"
	"github.com/waqiti/realtime-go/pkg/model"
	"github.com/waqiti/realtime-go/pkg/service"
)

// Credentials used by the connect command.
type Credentials struct {
	UserID string
	Token  string
}

// Console handles interactive mode for rt-client.
type Console struct {
	svc   *service.RealtimeService
	creds Credentials
	rl    *readline.Instance
	out   io.Writer
}

// New creates a console reading from the terminal.
func New(svc *service.RealtimeService, creds Credentials) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "rt> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	c := newConsole(svc, creds, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(svc *service.RealtimeService, creds Credentials, out io.Writer) *Console {
	c := &Console{svc: svc, creds: creds, out: out}
	svc.OnAll(c.printEvent)
	return c
}

func completer() *readline.PrefixCompleter {
	classes := func() []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{
			readline.PcItem("transaction"),
			readline.PcItem("wallet"),
			readline.PcItem("deposit"),
		}
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("connect"),
		readline.PcItem("disconnect"),
		readline.PcItem("sub", classes()...),
		readline.PcItem("unsub", classes()...),
		readline.PcItem("subs"),
		readline.PcItem("info"),
		readline.PcItem("balance"),
		readline.PcItem("txn"),
		readline.PcItem("deposit"),
		readline.PcItem("history"),
		readline.PcItem("notifications"),
		readline.PcItem("alerts"),
		readline.PcItem("quit"),
	)
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Exec(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the user asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "connect":
		c.cmdConnect(ctx)
	case "disconnect":
		c.svc.Disconnect()
		fmt.Fprintln(c.out, "Disconnected")
	case "sub", "subscribe":
		c.cmdSubscribe(args, true)
	case "unsub", "unsubscribe":
		c.cmdSubscribe(args, false)
	case "subs":
		c.cmdSubscriptions()
	case "info", "status":
		c.cmdInfo()
	case "balance":
		c.cmdBalance(args)
	case "txn":
		c.cmdTransaction(args)
	case "deposit":
		c.cmdDeposit(args)
	case "history":
		c.cmdHistory()
	case "notifications":
		c.cmdNotifications()
	case "alerts":
		c.cmdAlerts()
	case "quit", "exit", "q":
		return false
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Realtime Client Commands:
  Connection:
    connect                     - Connect with the configured credentials
    disconnect                  - Close the connection and forget credentials
    info                        - Show connection state

  Subscriptions:
    sub <class> <id>            - Subscribe (class: transaction, wallet, deposit)
    unsub <class> <id>          - Unsubscribe
    subs                        - List subscriptions

  Cache:
    balance <wallet-id>         - Show cached balance
    txn <transaction-id>        - Show cached transaction
    deposit <deposit-id>        - Show cached check deposit
    history                     - Show recent transaction updates
    notifications               - Show recent notifications
    alerts                      - Show recent alerts

  General:
    help                        - Show this help
    quit                        - Exit`)
}

func (c *Console) cmdConnect(ctx context.Context) {
	if c.creds.UserID == "" || c.creds.Token == "" {
		fmt.Fprintln(c.out, "No credentials configured (set auth.user_id and auth.token)")
		return
	}
	fmt.Fprintln(c.out, "Connecting...")
	if err := c.svc.Initialize(ctx, c.creds.UserID, c.creds.Token); err != nil {
		fmt.Fprintf(c.out, "Connect failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Connected")
}

func parseClass(s string) (model.TopicClass, bool) {
	switch strings.ToLower(s) {
	case "transaction", "txn", "t":
		return model.TopicTransaction, true
	case "wallet", "w":
		return model.TopicWallet, true
	case "deposit", "check_deposit", "d":
		return model.TopicCheckDeposit, true
	default:
		return "", false
	}
}

func (c *Console) cmdSubscribe(args []string, subscribe bool) {
	verb := "sub"
	if !subscribe {
		verb = "unsub"
	}
	if len(args) < 2 {
		fmt.Fprintf(c.out, "Usage: %s <transaction|wallet|deposit> <id>\n", verb)
		return
	}
	class, ok := parseClass(args[0])
	if !ok {
		fmt.Fprintf(c.out, "Unknown topic class: %s\n", args[0])
		return
	}
	id := args[1]

	switch {
	case subscribe && class == model.TopicTransaction:
		c.svc.SubscribeToTransaction(id)
	case subscribe && class == model.TopicWallet:
		c.svc.SubscribeToWallet(id)
	case subscribe:
		c.svc.SubscribeToCheckDeposit(id)
	case class == model.TopicTransaction:
		c.svc.UnsubscribeFromTransaction(id)
	case class == model.TopicWallet:
		c.svc.UnsubscribeFromWallet(id)
	default:
		c.svc.UnsubscribeFromCheckDeposit(id)
	}

	topic := model.Topic{Class: class, ID: id}
	if subscribe {
		fmt.Fprintf(c.out, "Subscribed to %s\n", topic)
	} else {
		fmt.Fprintf(c.out, "Unsubscribed from %s\n", topic)
	}
	if !c.svc.IsConnectedToServer() {
		fmt.Fprintln(c.out, "  (offline: queued until connected)")
	}
}

func (c *Console) cmdSubscriptions() {
	subs := c.svc.Subscriptions()
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "No subscriptions")
		return
	}
	fmt.Fprintf(c.out, "Subscriptions (%d):\n", len(subs))
	for _, t := range subs {
		fmt.Fprintf(c.out, "  %s\n", t)
	}
}

func (c *Console) cmdInfo() {
	info := c.svc.ConnectionInfo()
	fmt.Fprintln(c.out, "Connection:")
	fmt.Fprintf(c.out, "  State:          %s\n", info.State)
	fmt.Fprintf(c.out, "  Connected:      %v\n", info.Connected)
	fmt.Fprintf(c.out, "  Reconnects:     %d\n", info.ReconnectAttempts)
	fmt.Fprintf(c.out, "  Subscriptions:  %d\n", info.SubscriptionCount)
	fmt.Fprintf(c.out, "  Queued ops:     %d\n", info.QueuedOperationCount)
	if info.LastError != nil {
		fmt.Fprintf(c.out, "  Last error:     %v\n", info.LastError)
	}
}

func (c *Console) cmdBalance(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: balance <wallet-id>")
		return
	}
	b, ok := c.svc.CachedBalance(args[0])
	if !ok {
		fmt.Fprintf(c.out, "No cached balance for wallet %s\n", args[0])
		return
	}
	fmt.Fprintf(c.out, "Wallet %s: %s %s available", b.WalletID, b.Available, b.Currency)
	if b.Pending != "" {
		fmt.Fprintf(c.out, ", %s pending", b.Pending)
	}
	fmt.Fprintf(c.out, " (as of %s)\n", formatTime(b.UpdatedAt))
}

func (c *Console) cmdTransaction(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: txn <transaction-id>")
		return
	}
	u, ok := c.svc.CachedTransaction(args[0])
	if !ok {
		fmt.Fprintf(c.out, "No cached transaction %s\n", args[0])
		return
	}
	c.printTransaction(u)
}

func (c *Console) cmdDeposit(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: deposit <deposit-id>")
		return
	}
	d, ok := c.svc.CachedCheckDeposit(args[0])
	if !ok {
		fmt.Fprintf(c.out, "No cached check deposit %s\n", args[0])
		return
	}
	fmt.Fprintf(c.out, "Deposit %s: %s %s %s", d.DepositID, d.Status, d.Amount, d.Currency)
	if d.RejectionReason != "" {
		fmt.Fprintf(c.out, " (%s)", d.RejectionReason)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) cmdHistory() {
	updates := c.svc.CachedTransactionUpdates()
	if len(updates) == 0 {
		fmt.Fprintln(c.out, "No transaction updates")
		return
	}
	for _, u := range updates {
		c.printTransaction(u)
	}
}

func (c *Console) cmdNotifications() {
	ns := c.svc.CachedNotifications()
	if len(ns) == 0 {
		fmt.Fprintln(c.out, "No notifications")
		return
	}
	for _, n := range ns {
		fmt.Fprintf(c.out, "  [%s] %s: %s\n", n.Kind, n.Title, n.Message)
	}
}

func (c *Console) cmdAlerts() {
	as := c.svc.CachedAlerts()
	if len(as) == 0 {
		fmt.Fprintln(c.out, "No alerts")
		return
	}
	for _, a := range as {
		fmt.Fprintf(c.out, "  [%s] %s: %s\n", a.Severity, a.Title, a.Message)
	}
}

func (c *Console) printTransaction(u model.TransactionUpdate) {
	fmt.Fprintf(c.out, "  %s %-10s %s %s", u.TransactionID, u.Status, u.Amount, u.Currency)
	if u.FailureReason != "" {
		fmt.Fprintf(c.out, " (%s)", u.FailureReason)
	}
	fmt.Fprintf(c.out, " at %s\n", formatTime(u.UpdatedAt))
}

func (c *Console) printEvent(e events.Event) {
	switch ev := e.(type) {
	case events.ConnectionEvent:
		switch ev.Type {
		case events.TypeReconnecting:
			fmt.Fprintf(c.out, "[EVENT] %s attempt %d in %s\n", ev.Type, ev.Attempt, ev.Delay)
		default:
			if ev.Err != nil {
				fmt.Fprintf(c.out, "[EVENT] %s: %v\n", ev.Type, ev.Err)
			} else {
				fmt.Fprintf(c.out, "[EVENT] %s\n", ev.Type)
			}
		}
	case events.ErrorEvent:
		fmt.Fprintf(c.out, "[EVENT] ERROR %s: %v\n", ev.Kind, ev.Err)
	case events.TransactionEvent:
		fmt.Fprintf(c.out, "[EVENT] %s %s %s %s\n", ev.Type, ev.Update.TransactionID, ev.Update.Amount, ev.Update.Currency)
	case events.PaymentEvent:
		fmt.Fprintf(c.out, "[EVENT] %s %s %s wallet=%s\n", ev.Type, ev.Payment.Amount, ev.Payment.Currency, ev.Payment.WalletID)
	case events.BalanceEvent:
		fmt.Fprintf(c.out, "[EVENT] %s wallet=%s available=%s %s\n", ev.EventType(), ev.Balance.WalletID, ev.Balance.Available, ev.Balance.Currency)
	case events.CheckDepositEvent:
		fmt.Fprintf(c.out, "[EVENT] %s %s %s %s\n", ev.Type, ev.Deposit.DepositID, ev.Deposit.Amount, ev.Deposit.Currency)
	case events.NotificationEvent:
		fmt.Fprintf(c.out, "[EVENT] %s %s\n", ev.EventType(), ev.Notification.Title)
	case events.AlertEvent:
		fmt.Fprintf(c.out, "[EVENT] %s [%s] %s\n", ev.EventType(), ev.Alert.Severity, ev.Alert.Title)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
