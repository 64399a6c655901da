package domain

import "errors"

var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrDuplicateBet      = errors.New("pending bet already exists for this match")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidStake      = errors.New("stake must be a positive integer")
	ErrNotOwner          = errors.New("bet belongs to another user")
	ErrInvalidState      = errors.New("operation not valid for current state")
	ErrAlreadySettled    = errors.New("bet already settled")
	ErrMatchClosed       = errors.New("match closed")
	ErrStoreConflict     = errors.New("concurrent update, retry")
	ErrNotFound          = errors.New("not found")
	ErrUnknownTeam       = errors.New("team does not play this match")
)

// Kinds estáveis expostos para a camada de apresentação
const (
	KindUnauthenticated   = "Unauthenticated"
	KindDuplicateBet      = "DuplicateBet"
	KindInsufficientFunds = "InsufficientFunds"
	KindInvalidStake      = "InvalidStake"
	KindNotOwner          = "NotOwner"
	KindInvalidState      = "InvalidState"
	KindAlreadySettled    = "AlreadySettled"
	KindMatchClosed       = "MatchClosed"
	KindStoreConflict     = "StoreConflict"
	KindNotFound          = "NotFound"
	KindUnknownTeam       = "UnknownTeam"
	KindInternal          = "Internal"
	KindOK                = "OK"
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrUnauthenticated, KindUnauthenticated},
	{ErrDuplicateBet, KindDuplicateBet},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrInvalidStake, KindInvalidStake},
	{ErrNotOwner, KindNotOwner},
	{ErrInvalidState, KindInvalidState},
	{ErrAlreadySettled, KindAlreadySettled},
	{ErrMatchClosed, KindMatchClosed},
	{ErrStoreConflict, KindStoreConflict},
	{ErrNotFound, KindNotFound},
	{ErrUnknownTeam, KindUnknownTeam},
}

// Kind classifica um erro na taxonomia do ledger.
// nil vira KindOK e erros de infraestrutura viram KindInternal.
func Kind(err error) string {
	if err == nil {
		return KindOK
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable indica erros transitórios que o chamador pode repetir.
func Retryable(err error) bool { return errors.Is(err, ErrStoreConflict) }
