package delegatorShares

import (
	"testing"

	"github.com/Layr-Labs/operator-state/pkg/events"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindManager"
	"github.com/Layr-Labs/operator-state/pkg/operatorState/kindTest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func share(staker string, strategy string, amount string, eventType string) map[string]interface{} {
	return map[string]interface{}{
		"staker_id":   staker,
		"strategy_id": strategy,
		"shares":      amount,
		"event_type":  eventType,
	}
}

func Test_DelegatorShares(t *testing.T) {
	l := zap.NewNop()

	setup := func() (*DelegatorSharesKind, *kindTest.Fixture) {
		kind, err := NewDelegatorSharesKind(kindManager.NewKindManager(l), l)
		assert.Nil(t, err)
		f := kindTest.NewFixture()
		f.Add(events.Table_OperatorShareEvents, 10, 0, kindTest.At(1), share("0xst1", "0xs1", "100", events.ShareEventType_Increased))
		f.Add(events.Table_OperatorShareEvents, 11, 0, kindTest.At(2), share("0xst1", "0xs1", "30", events.ShareEventType_Decreased))
		f.Add(events.Table_OperatorShareEvents, 12, 0, kindTest.At(3), share("0xst1", "0xs1", "5", events.ShareEventType_Increased))
		f.Add(events.Table_OperatorShareEvents, 13, 0, kindTest.At(4), share("0xst2", "0xs1", "50", events.ShareEventType_Increased))
		f.Add(events.Table_OperatorShareEvents, 14, 0, kindTest.At(5), share("0xst2", "0xs1", "50", events.ShareEventType_Decreased))
		f.Add(events.Table_StakerDelegationEvents, 9, 0, kindTest.At(0), map[string]interface{}{"staker_id": "0xst1", "delegation_type": events.DelegationType_Delegated})
		return kind, f
	}

	t.Run("Should net deltas and drop empty balances", func(t *testing.T) {
		kind, f := setup()
		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, "0xst1", rows[0]["staker_id"])
		assert.Equal(t, "75", rows[0]["shares"].(decimal.Decimal).String())
		assert.Equal(t, uint64(12), rows[0]["last_changed_block"])
		assert.Equal(t, true, rows[0]["is_delegated"])
	})

	t.Run("Should compute the balance as of a block", func(t *testing.T) {
		kind, f := setup()
		rows, err := f.Resolve(kind, kindTest.Block(13), kindTest.Genesis)
		assert.Nil(t, err)
		assert.Len(t, rows, 2)
		st1 := kindTest.FindRow(rows, map[string]string{"staker_id": "0xst1"})
		assert.Equal(t, "75", st1["shares"].(decimal.Decimal).String())
		st2 := kindTest.FindRow(rows, map[string]string{"staker_id": "0xst2"})
		assert.Equal(t, "50", st2["shares"].(decimal.Decimal).String())
	})

	t.Run("Should mark undelegated stakers", func(t *testing.T) {
		kind, f := setup()
		f.Add(events.Table_StakerDelegationEvents, 20, 0, kindTest.At(9), map[string]interface{}{"staker_id": "0xst1", "delegation_type": events.DelegationType_Undelegated})
		rows, err := f.Resolve(kind, nil, kindTest.Genesis)
		assert.Nil(t, err)
		assert.Equal(t, false, rows[0]["is_delegated"])
	})
}

func Test_SignedShares(t *testing.T) {
	t.Run("Should negate decreases", func(t *testing.T) {
		d, err := SignedShares(&events.OperatorSharePayload{Shares: "12", EventType: events.ShareEventType_Decreased})
		assert.Nil(t, err)
		assert.Equal(t, "-12", d.String())
	})
	t.Run("Should reject non numeric shares", func(t *testing.T) {
		_, err := SignedShares(&events.OperatorSharePayload{Shares: "abc"})
		assert.NotNil(t, err)
	})
}
