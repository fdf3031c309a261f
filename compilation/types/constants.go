package types

import "bytes"

// libraryIndicator is used to identify whether a contract is a library. If the runtime bytecode begins with
// libraryIndicator then the contract is a library. This indicator is equivalent to a `PUSH20` instruction of a 20-byte
// zero string.
var libraryIndicator = append([]byte{0x73}, make([]byte, 20)...)

// InferContractKind determines the kind of contract from its runtime bytecode, for toolchains which do not report it.
// Contracts without runtime bytecode are assumed to be interfaces (or abstract).
func InferContractKind(runtimeBytecode []byte) ContractKind {
	if len(runtimeBytecode) == 0 {
		return ContractKindInterface
	}
	if bytes.HasPrefix(runtimeBytecode, libraryIndicator) {
		return ContractKindLibrary
	}
	return ContractKindContract
}
