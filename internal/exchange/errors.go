package exchange

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/adshao/go-binance/v2/common"
	"github.com/skalibog/rsibot/pkg/models"
)

var (
	// ErrMissingKey в ответе биржи нет ожидаемого поля или записи
	ErrMissingKey = errors.New("в ответе биржи отсутствует ожидаемое значение")
	// ErrInvalidValue значение в ответе биржи не удалось разобрать
	ErrInvalidValue = errors.New("некорректное значение в ответе биржи")
)

// Коды Binance, после которых запрос можно повторить
const (
	codeDisconnected    = -1001
	codeTooManyRequests = -1003
	codeTimeout         = -1007
	codeTooManyOrders   = -1015
	codeTimestamp       = -1021
	codeNewOrderReject  = -2010
)

// Classify сопоставляет ошибку с закрытым перечнем видов ошибок
func Classify(err error) models.ErrorKind {
	if err == nil {
		return models.ErrorUnknown
	}

	if errors.Is(err, ErrMissingKey) {
		return models.ErrorKey
	}
	if errors.Is(err, ErrInvalidValue) {
		return models.ErrorValue
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.ErrorConnection
	}

	// TLS проверяем раньше сети: url.Error оборачивает ошибки рукопожатия
	var recordErr tls.RecordHeaderError
	var verifyErr *tls.CertificateVerificationError
	var authorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &recordErr) || errors.As(err, &verifyErr) || errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) || errors.As(err, &invalidErr) {
		return models.ErrorTLS
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return models.ErrorDecode
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return models.ErrorType
	}
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return models.ErrorValue
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if retryableCode(apiErr.Code) {
			return models.ErrorConnection
		}
		return models.ErrorUnknown
	}

	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) || errors.Is(err, io.EOF) {
		return models.ErrorConnection
	}

	return models.ErrorUnknown
}

// IsRejected сообщает, что биржа отклонила конкретный запрос
func IsRejected(err error) bool {
	if errors.Is(err, ErrQuantityTooSmall) {
		return true
	}
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return !retryableCode(apiErr.Code)
}

// IsInsufficientBalance сообщает об отказе из-за нехватки средств
func IsInsufficientBalance(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeNewOrderReject &&
		strings.Contains(strings.ToLower(apiErr.Message), "insufficient balance")
}

// RejectMessage возвращает сообщение биржи или текст ошибки
func RejectMessage(err error) string {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

func retryableCode(code int64) bool {
	switch code {
	case codeDisconnected, codeTooManyRequests, codeTimeout, codeTooManyOrders, codeTimestamp:
		return true
	}
	return false
}
