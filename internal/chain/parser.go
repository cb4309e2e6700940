package chain

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/nishant2253/proofchain/proofchain-go/internal/model"
	"github.com/nishant2253/proofchain/proofchain-go/internal/service"
)

// ErrUnknownEvent is returned for logs whose topic0 is not a watched event.
var ErrUnknownEvent = errors.New("unknown contract event")

// Finalized is a VotingFinalized event.
type Finalized struct {
	ContractID    uint64
	WinningOption model.VoteOption
	TotalVotes    *big.Int
	TxHash        string
}

// Event is one decoded contract log. Exactly one of Content, Vote and
// Finalized is set, according to Name.
type Event struct {
	Name        string
	BlockNumber uint64
	TxHash      string

	Content   *service.ChainContent
	Vote      *service.ChainVote
	Finalized *Finalized
}

// EventParser decodes ProofChain contract logs.
type EventParser struct {
	abi    abi.ABI
	byID   map[ethcommon.Hash]abi.Event
	topics []ethcommon.Hash
}

func NewEventParser(contract abi.ABI) *EventParser {
	p := &EventParser{
		abi:  contract,
		byID: make(map[ethcommon.Hash]abi.Event),
	}
	for _, name := range []string{EventContentSubmitted, EventVoteSubmitted, EventVotingFinalized} {
		ev, ok := contract.Events[name]
		if !ok {
			continue
		}
		p.byID[ev.ID] = ev
		p.topics = append(p.topics, ev.ID)
	}
	return p
}

// Topics returns the topic0 hashes of every watched event.
func (p *EventParser) Topics() []ethcommon.Hash {
	return p.topics
}

// Parse decodes a single log.
func (p *EventParser) Parse(lg types.Log) (*Event, error) {
	if len(lg.Topics) == 0 {
		return nil, ErrUnknownEvent
	}
	ev, ok := p.byID[lg.Topics[0]]
	if !ok {
		return nil, ErrUnknownEvent
	}

	values, err := ev.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", ev.Name, err)
	}

	out := &Event{
		Name:        ev.Name,
		BlockNumber: lg.BlockNumber,
		TxHash:      lg.TxHash.Hex(),
	}

	switch ev.Name {
	case EventContentSubmitted:
		if len(lg.Topics) < 3 || len(values) != 2 {
			return nil, fmt.Errorf("malformed %s log", ev.Name)
		}
		id, err := topicUint64(lg.Topics[1])
		if err != nil {
			return nil, err
		}
		ipfs, _ := values[0].(string)
		end, ok := values[1].(*big.Int)
		if !ok || !end.IsInt64() {
			return nil, fmt.Errorf("%s: bad votingEndTime", ev.Name)
		}
		out.Content = &service.ChainContent{
			ContractID:    id,
			Submitter:     topicAddress(lg.Topics[2]),
			ContentHash:   ipfs,
			VotingEndTime: time.Unix(end.Int64(), 0).UTC(),
			TxHash:        out.TxHash,
		}

	case EventVoteSubmitted:
		if len(lg.Topics) < 3 || len(values) != 4 {
			return nil, fmt.Errorf("malformed %s log", ev.Name)
		}
		id, err := topicUint64(lg.Topics[1])
		if err != nil {
			return nil, err
		}
		option, ok1 := values[0].(uint8)
		token, ok2 := values[1].(uint8)
		stake, ok3 := values[2].(*big.Int)
		confidence, ok4 := values[3].(uint8)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, fmt.Errorf("%s: unexpected field types", ev.Name)
		}
		out.Vote = &service.ChainVote{
			ContractID: id,
			Voter:      topicAddress(lg.Topics[2]),
			Option:     model.VoteOption(option),
			TokenType:  model.TokenType(token),
			Amount:     stake,
			Confidence: int(confidence),
			TxHash:     out.TxHash,
		}

	case EventVotingFinalized:
		if len(lg.Topics) < 2 || len(values) != 2 {
			return nil, fmt.Errorf("malformed %s log", ev.Name)
		}
		id, err := topicUint64(lg.Topics[1])
		if err != nil {
			return nil, err
		}
		winner, ok1 := values[0].(uint8)
		total, ok2 := values[1].(*big.Int)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%s: unexpected field types", ev.Name)
		}
		out.Finalized = &Finalized{
			ContractID:    id,
			WinningOption: model.VoteOption(winner),
			TotalVotes:    total,
			TxHash:        out.TxHash,
		}
	}
	return out, nil
}

func topicUint64(h ethcommon.Hash) (uint64, error) {
	v := new(big.Int).SetBytes(h.Bytes())
	if !v.IsUint64() {
		return 0, fmt.Errorf("content id %s overflows uint64", v)
	}
	return v.Uint64(), nil
}

func topicAddress(h ethcommon.Hash) string {
	return ethcommon.BytesToAddress(h.Bytes()).Hex()
}
