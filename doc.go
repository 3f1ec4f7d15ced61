// Package nfthash implements the hash classification expression of a
// packet-filtering rule engine.
//
// An expression hashes either a span of register bytes (content hash) or the
// packet's symmetric flow hash, scales the hash into [0, modulus), adds an
// offset and stores the result in a destination register. Map variants use
// the result as a key into a host-owned set and copy the mapped value
// instead; a miss leaves the destination untouched.
//
// # Basic Usage
//
// Building and evaluating a content expression:
//
//	expr, err := nfthash.New(nfthash.Attrs{
//	    SReg:    nfthash.Ptr(nfthash.Reg1),
//	    DReg:    nfthash.Ptr(nfthash.Reg32(4)),
//	    Len:     nfthash.Ptr(uint32(4)),
//	    Modulus: nfthash.Ptr(uint32(16)),
//	    Offset:  nfthash.Ptr(uint32(100)),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer expr.Destroy()
//
//	var regs nfthash.RegisterSet
//	regs.Store(nfthash.ParseRegister(nfthash.Reg1), []byte{1, 2, 3, 4})
//	expr.Eval(&regs, nil)
//	fmt.Println(regs.Uint32(expr.Dest())) // in [100, 116)
//
// Map variants resolve their set once through a SetResolver; package set
// provides in-memory and file-backed sets plus a registry.
//
// # Package Structure
//
//   - Public API: expr.go (New, NewContent, NewSymmetric, NewContentMap,
//     NewSymmetricMap, Eval, Dump, Destroy)
//   - Configuration: options.go (Option, With* functions), attrs.go (Attrs)
//   - Wire codec: codec.go (MarshalAttrs, UnmarshalAttrs)
//   - Host interfaces: registers.go (Registers, RegisterSet), set.go (Set,
//     SetResolver), strategy.go (Packet)
//   - Hash strategies: strategy.go, internal/jhash/
//   - Range reduction: internal/bits/
//   - Sets: set/; flow hashing: flow/; CLI: cmd/hashctl/
package nfthash
