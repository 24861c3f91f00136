package domain

// ETHEREUM_ZERO_ADDRESS is rejected wherever an owner address is required.
const ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"
