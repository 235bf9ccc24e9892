package strategy

import (
	"github.com/yanun0323/errors"

	"main/internal/codec"
	"main/internal/schema"
)

// OrderSpec carries the caller's intent for one order.
type OrderSpec struct {
	InstrumentID string
	ExchangeID   string
	AccountID    string
	LimitPrice   float64
	Volume       int64
	Side         schema.Side
	Offset       schema.Offset
}

// InsertLimitOrder submits a good-for-day limit order and returns its id.
func (c *Core) InsertLimitOrder(spec OrderSpec) (uint64, error) {
	return c.insertOrder(spec, schema.PriceTypeLimit, schema.TimeConditionGFD, schema.VolumeConditionAny)
}

// InsertFAKOrder submits a fill-and-kill limit order: any immediate fill is
// kept, the remainder cancels.
func (c *Core) InsertFAKOrder(spec OrderSpec) (uint64, error) {
	return c.insertOrder(spec, schema.PriceTypeLimit, schema.TimeConditionIOC, schema.VolumeConditionAny)
}

// InsertFOKOrder submits a fill-or-kill limit order: complete immediate fill
// or full cancel.
func (c *Core) InsertFOKOrder(spec OrderSpec) (uint64, error) {
	return c.insertOrder(spec, schema.PriceTypeLimit, schema.TimeConditionIOC, schema.VolumeConditionAll)
}

// InsertMarketOrder submits a marketable order. Shanghai and Shenzhen have
// no true market orders, so the command goes out as best-five immediate;
// other venues take an any-price order with the last quote as the frozen
// price the gateway can risk-check against.
func (c *Core) InsertMarketOrder(spec OrderSpec) (uint64, error) {
	spec.LimitPrice = 0
	switch spec.ExchangeID {
	case schema.ExchangeSSE, schema.ExchangeSZE:
		return c.insertOrder(spec, schema.PriceTypeBest5, schema.TimeConditionIOC, schema.VolumeConditionAny)
	default:
		return c.insertOrder(spec, schema.PriceTypeAny, schema.TimeConditionIOC, schema.VolumeConditionAny)
	}
}

func (c *Core) insertOrder(spec OrderSpec, priceType schema.PriceType, timeCondition schema.TimeCondition, volumeCondition schema.VolumeCondition) (uint64, error) {
	if spec.Volume <= 0 {
		c.cfg.Metrics.OrdersRejected.Add(1)
		return 0, errors.New("order volume must be > 0")
	}
	if spec.Side != schema.SideBuy && spec.Side != schema.SideSell {
		c.cfg.Metrics.OrdersRejected.Add(1)
		return 0, errors.New("order side must be buy or sell")
	}

	if !c.cfg.Calculator.HasAccount(spec.AccountID) {
		c.cfg.Metrics.OrdersRejected.Add(1)
		return 0, errors.Wrapf(ErrUnknownAccount, "account %s", spec.AccountID)
	}

	input, err := c.buildInput(spec, priceType, timeCondition, volumeCondition)
	if err != nil {
		c.cfg.Metrics.OrdersRejected.Add(1)
		return 0, err
	}

	c.submitMu.Lock()
	input.OrderID = c.ids.NextID()
	_, err = c.append(schema.KindOrderInput, codec.EncodeOrderInput(nil, input))
	c.submitMu.Unlock()
	if err != nil {
		return 0, err
	}
	c.cfg.Metrics.OrdersSubmitted.Add(1)
	return input.OrderID, nil
}

func (c *Core) buildInput(spec OrderSpec, priceType schema.PriceType, timeCondition schema.TimeCondition, volumeCondition schema.VolumeCondition) (schema.OrderInput, error) {
	instrumentID, err := schema.NewStr32(spec.InstrumentID)
	if err != nil {
		return schema.OrderInput{}, errors.Wrap(err, "instrument id")
	}
	exchangeID, err := schema.NewStr16(spec.ExchangeID)
	if err != nil {
		return schema.OrderInput{}, errors.Wrap(err, "exchange id")
	}
	accountID, err := schema.NewStr32(spec.AccountID)
	if err != nil {
		return schema.OrderInput{}, errors.Wrap(err, "account id")
	}
	clientID, err := schema.NewStr32(c.cfg.Name)
	if err != nil {
		return schema.OrderInput{}, errors.Wrap(err, "client id")
	}

	input := schema.OrderInput{
		InstrumentID:    instrumentID,
		ExchangeID:      exchangeID,
		AccountID:       accountID,
		ClientID:        clientID,
		LimitPrice:      spec.LimitPrice,
		FrozenPrice:     spec.LimitPrice,
		Volume:          spec.Volume,
		Side:            spec.Side,
		Offset:          spec.Offset,
		PriceType:       priceType,
		TimeCondition:   timeCondition,
		VolumeCondition: volumeCondition,
	}
	if priceType != schema.PriceTypeLimit {
		// No limit price to freeze capital against: fall back to the last
		// quote so the gateway has a price for its funds check.
		quote, ok := c.LastQuote(spec.InstrumentID, spec.ExchangeID)
		if ok {
			input.FrozenPrice = quote.LastPrice
		}
	}
	return input, nil
}

// CancelOrder submits a cancel for a previously issued order and returns
// the action id. Whether the order is still live is the gateway's call; the
// command is journaled regardless.
func (c *Core) CancelOrder(orderID uint64) (uint64, error) {
	if orderID == 0 {
		return 0, errors.New("cancel needs an order id")
	}

	c.submitMu.Lock()
	action := schema.OrderAction{
		OrderActionID: c.ids.NextID(),
		OrderID:       orderID,
		ActionFlag:    schema.ActionFlagCancel,
	}
	_, err := c.append(schema.KindOrderAction, codec.EncodeOrderAction(nil, action))
	c.submitMu.Unlock()
	if err != nil {
		return 0, err
	}
	return action.OrderActionID, nil
}

// InsertAlgoOrder submits an algo order. The algo type and input body are
// opaque here; the algo service interprets them.
func (c *Core) InsertAlgoOrder(algoType, input string) (uint64, error) {
	if algoType == "" {
		return 0, errors.New("algo type is empty")
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	in := schema.AlgoOrderInput{
		OrderID:  c.ids.NextID(),
		ClientID: c.cfg.Name,
		AlgoType: algoType,
		Input:    input,
	}
	payload, err := codec.EncodeAlgoOrderInput(in)
	if err != nil {
		return 0, errors.Wrap(err, "encode algo order")
	}
	if _, err := c.append(schema.KindAlgoOrderInput, payload); err != nil {
		return 0, err
	}
	return in.OrderID, nil
}

// ModifyAlgoOrder submits a modification against a live algo order.
func (c *Core) ModifyAlgoOrder(orderID uint64, action string) (uint64, error) {
	if orderID == 0 {
		return 0, errors.New("algo modify needs an order id")
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()
	act := schema.AlgoOrderAction{
		OrderActionID: c.ids.NextID(),
		OrderID:       orderID,
		Action:        action,
	}
	payload, err := codec.EncodeAlgoOrderAction(act)
	if err != nil {
		return 0, errors.Wrap(err, "encode algo action")
	}
	if _, err := c.append(schema.KindAlgoOrderAction, payload); err != nil {
		return 0, err
	}
	return act.OrderActionID, nil
}
