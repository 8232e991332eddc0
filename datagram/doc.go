// Package datagram implements the command/reply service that accepts
// flashing commands over UDP.
//
// Each datagram is one whitespace-delimited command line. The server hands
// it to a Worker in its own goroutine and answers the sender with exactly
// "Finished with success" or "Finished with fail". The line "stop" ends the
// service.
//
// Three channel modes exist:
//   - plain: datagrams are the command line itself
//   - static key: every datagram is AES-CBC ciphertext under one key
//   - ECDH: a client first sends "csk:" + its raw P-256 public key, the
//     server answers "ssk:" + its own, and the next datagram from that
//     client is decrypted with the derived key. The key is used once.
//
// Pending handshakes are kept per client address, so concurrent clients
// never share key material. A client has at most one pending handshake; a
// new hello replaces the old one. Unused handshakes expire after the
// session TTL.
//
//	srv, err := datagram.NewServer(conn, worker, datagram.WithECDH())
//	go srv.Serve(ctx)
//
//	c, err := datagram.Dial("10.0.0.5:8080", datagram.WithECDH())
//	ok, err := c.Send(ctx, "--chipname bl602 --port /dev/ttyUSB0")
package datagram
