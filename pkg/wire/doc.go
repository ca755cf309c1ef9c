// Package wire defines the CBOR wire format of the realtime update protocol.
//
// Every WebSocket binary frame carries exactly one Envelope. Envelopes use
// integer keys for compactness:
//
//	1: kind        (uint8, see Kind)
//	2: messageId   (uint32, 0 for server pushed events)
//	3: topic       ({1: class, 2: id})
//	4: event name  (string, see EventName)
//	5: payload     (raw CBOR, decoded by the receiver into a typed struct)
//	6: timestamp   (unix milliseconds)
//	7: error       ({1: code, 2: message})
//
// # Exchange
//
// The client opens the socket and sends KindAuth carrying an AuthPayload.
// The server answers KindAuthenticated or KindError. Afterwards the client
// sends KindSubscribe and KindUnsubscribe for topics and the server pushes
// KindEvent envelopes for subscribed topics.
//
// Payload fields are string keyed (camelCase) so that payload structs can
// evolve without renumbering.
package wire
