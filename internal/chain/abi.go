package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Contract event and method names.
const (
	EventContentSubmitted = "ContentSubmitted"
	EventVoteSubmitted    = "VoteSubmitted"
	EventVotingFinalized  = "VotingFinalized"

	MethodTokenPriceUSD = "getTokenPriceUSD"
)

// ProofChainABI is the subset of the ProofChain contract interface the
// backend consumes.
const ProofChainABI = `[
	{
		"type": "event",
		"name": "ContentSubmitted",
		"anonymous": false,
		"inputs": [
			{ "name": "contentId", "type": "uint256", "indexed": true },
			{ "name": "submitter", "type": "address", "indexed": true },
			{ "name": "ipfsHash", "type": "string", "indexed": false },
			{ "name": "votingEndTime", "type": "uint256", "indexed": false }
		]
	},
	{
		"type": "event",
		"name": "VoteSubmitted",
		"anonymous": false,
		"inputs": [
			{ "name": "contentId", "type": "uint256", "indexed": true },
			{ "name": "voter", "type": "address", "indexed": true },
			{ "name": "vote", "type": "uint8", "indexed": false },
			{ "name": "tokenType", "type": "uint8", "indexed": false },
			{ "name": "stakeAmount", "type": "uint256", "indexed": false },
			{ "name": "confidence", "type": "uint8", "indexed": false }
		]
	},
	{
		"type": "event",
		"name": "VotingFinalized",
		"anonymous": false,
		"inputs": [
			{ "name": "contentId", "type": "uint256", "indexed": true },
			{ "name": "winningOption", "type": "uint8", "indexed": false },
			{ "name": "totalVotes", "type": "uint256", "indexed": false }
		]
	},
	{
		"type": "function",
		"name": "getTokenPriceUSD",
		"stateMutability": "view",
		"inputs": [
			{ "name": "tokenType", "type": "uint8", "internalType": "enum ProofChain.TokenType" }
		],
		"outputs": [
			{ "name": "", "type": "uint256", "internalType": "uint256" }
		]
	}
]`

func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(ProofChainABI))
}
