// Package fastload implements the chunked "fast load" file transfer used to
// stream images to a device loader over a serial or TCP link.
//
// # Overview
//
// A transfer is strictly synchronous, one frame in flight:
//   - Header frame with the file size, answered with "OK"
//   - Chunk frames of up to 4096 bytes, each answered with "OK"
//   - Trailer frame, answered with "OK" + hex SHA-256 of the received data
//   - "check hash" once the digest matches the local one
//
// # Basic Usage
//
//	port, err := serial.Open("/dev/ttyUSB0", &serial.Mode{BaudRate: 2000000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s := fastload.New(port)
//	if err := s.SendFile(context.Background(), "whole_img.bin"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Progress Tracking
//
//	s := fastload.New(port,
//	    fastload.WithProgressCallback(func(p fastload.Progress) {
//	        fmt.Printf("[%s] %.1f%% - chunk %d/%d\n",
//	            p.Phase, p.Percentage, p.Chunk, p.TotalChunks)
//	    }),
//	)
//
// # Error Handling
//
// Every failure aborts the whole transfer; there is no resume. Failures are
// reported as *TransferError carrying a Code:
//   - CodeHeaderAck (Error1): header not acknowledged
//   - CodeChunkAck (Error2): chunk not acknowledged
//   - CodeTrailerReply (Error3): trailer reply without "OK"
//   - CodeHashMismatch (Error4): device hash differs
//   - CodeTimeout: no reply within the read timeout (default 1s)
//
// # Device Side
//
// Receiver implements the device end of the protocol and is used by the
// mock device example and the tests.
package fastload
