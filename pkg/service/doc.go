// Package service provides the realtime update client.
//
// RealtimeService ties the lower-level components together:
//   - connection.Manager for the connection state machine and reconnection
//   - subscription.Registry as the desired set of topics
//   - outbox.Queue for subscription changes made while offline
//   - router.Router to validate, cache and fan out inbound events
//   - netmon.Monitor to reconnect as soon as the network is back
//
// Example usage:
//
//	config := service.DefaultConfig()
//	config.URL = "wss://updates.example.com/ws"
//
//	svc, err := service.New(config)
//	svc.On(events.TypeBalanceChanged, func(e events.Event) { ... })
//	if err := svc.Initialize(ctx, userID, token); err != nil { ... }
//	svc.SubscribeToWallet("w-1")
//	defer svc.Disconnect()
//
// Only Initialize blocks. Subscriptions and queries return immediately;
// failures after Initialize are reported as events.TypeError.
package service
