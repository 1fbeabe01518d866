package models

import "fmt"

// ScopeAll область паузы, действующая на все рынки
const ScopeAll = "ALL"

// PauseKind вид паузы
type PauseKind int

const (
	PauseBuy PauseKind = iota
	PauseSell
	PauseBalance
)

// PauseKinds перечисляет все виды пауз
var PauseKinds = []PauseKind{PauseBuy, PauseSell, PauseBalance}

func (k PauseKind) String() string {
	switch k {
	case PauseBuy:
		return "buy"
	case PauseSell:
		return "sell"
	case PauseBalance:
		return "balance"
	}
	return fmt.Sprintf("PauseKind(%d)", int(k))
}

// PauseKey ключ записи паузы: символ пары или ALL плюс вид
type PauseKey struct {
	Scope string
	Kind  PauseKind
}

func (k PauseKey) String() string {
	return k.Scope + "/" + k.Kind.String()
}

// GlobalPause возвращает ключ паузы для всех рынков
func GlobalPause(kind PauseKind) PauseKey {
	return PauseKey{Scope: ScopeAll, Kind: kind}
}

// PairPause возвращает ключ паузы для конкретной пары
func PairPause(pair MarketPair, kind PauseKind) PauseKey {
	return PauseKey{Scope: pair.Symbol, Kind: kind}
}
