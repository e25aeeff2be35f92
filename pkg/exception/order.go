package exception

import "github.com/yanun0323/errors"

var (
	ErrOrderDuplicate    = errors.New("order: already exists")
	ErrOrderUnknown      = errors.New("order: not found")
	ErrOrderZeroID       = errors.New("order: zero client order id")
	ErrOrderSideOccupied = errors.New("order: side already has an active quote")
	ErrOrderInvalidFill  = errors.New("order: invalid fill volume")
	ErrOrderClosed       = errors.New("order: already closed")
	ErrOrderUnsupported  = errors.New("order: unsupported intent type")
)

var (
	ErrHedgeDuplicate = errors.New("hedge: already exists")
	ErrHedgeUnknown   = errors.New("hedge: not found")
)
