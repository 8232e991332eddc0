// Package efuse builds eFuse configuration records for secure boot key
// provisioning.
//
// The eFuse area is one-time programmable, so every record produced here is
// a codec.Record whose Mask marks exactly the bits the caller asked for.
// A downstream burn step programs Data under Mask and verifies it.
//
// # Key Provisioning
//
// Build turns a signing public key and/or an AES key into key-slot words:
//
//	rec, err := efuse.Build(efuse.Request{
//	    AESMode:      efuse.AES128,
//	    AESKeyHex:    "000102030405060708090a0b0c0d0e0f",
//	    PublicKeyPEM: pemBytes,
//	    Locks:        efuse.Locks{AESKeyRead: true, AESKeyWrite: true},
//	})
//
// The SHA-256 hash of the public key fills key slots 0 and 1 and enables
// signature checking. AES key material starts at key slot 2. Lock bits are
// only set for the flags given in Locks.
//
// Invalid key material returns a *ConfigError describing the failed check;
// it never panics, so a provisioning tool can report the message and skip
// the step.
package efuse
