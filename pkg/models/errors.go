package models

import "fmt"

// ErrorKind вид ошибки для уведомлений и решения о перезапуске цикла
type ErrorKind int

const (
	ErrorMarket ErrorKind = iota
	ErrorCoinMarket
	ErrorBuy
	ErrorSell
	ErrorOrder
	ErrorBalance
	ErrorConnection
	ErrorTLS
	ErrorDecode
	ErrorType
	ErrorKey
	ErrorValue
	ErrorUnknown
)

// ErrorKinds перечисляет все виды ошибок
var ErrorKinds = []ErrorKind{
	ErrorMarket, ErrorCoinMarket, ErrorBuy, ErrorSell, ErrorOrder, ErrorBalance,
	ErrorConnection, ErrorTLS, ErrorDecode, ErrorType, ErrorKey, ErrorValue, ErrorUnknown,
}

func (k ErrorKind) String() string {
	switch k {
	case ErrorMarket:
		return "market"
	case ErrorCoinMarket:
		return "coinMarket"
	case ErrorBuy:
		return "buy"
	case ErrorSell:
		return "sell"
	case ErrorOrder:
		return "order"
	case ErrorBalance:
		return "balance"
	case ErrorConnection:
		return "connection"
	case ErrorTLS:
		return "TLS"
	case ErrorDecode:
		return "decode"
	case ErrorType:
		return "type"
	case ErrorKey:
		return "key"
	case ErrorValue:
		return "value"
	case ErrorUnknown:
		return "unknown"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Fatal сообщает, что после ошибки процесс должен завершиться.
// Нарушение формы данных и неизвестные ошибки небезопасно повторять.
func (k ErrorKind) Fatal() bool {
	switch k {
	case ErrorKey, ErrorValue, ErrorUnknown:
		return true
	case ErrorMarket, ErrorCoinMarket, ErrorBuy, ErrorSell, ErrorOrder, ErrorBalance,
		ErrorConnection, ErrorTLS, ErrorDecode, ErrorType:
		return false
	}
	return true
}

// Retryable сообщает, что ошибка прерывает цикл и цикл повторяется после паузы
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorConnection, ErrorTLS, ErrorDecode, ErrorType:
		return true
	}
	return false
}
