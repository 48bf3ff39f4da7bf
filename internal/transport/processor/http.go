// Package processor общая часть HTTP клиентов платежных процессоров.
package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Константы минимального и максимально значения в заголовке Retry-After.
const (
	minRetryAfter     = 1
	maxRetryAfter     = 120
	defaultRetryAfter = 60

	maxResponseBytes = 1 << 20
)

// DefaultHTTPClient клиент с таймаутом, общий для процессоров.
func DefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second} //nolint:mnd
}

// Do выполняет запрос и разбирает JSON ответа в out. При ответе со статусом вне 2xx возвращает
// *StatusCodeError, или *TooManyRequestError в случае http.StatusTooManyRequests.
//
//nolint:nonamedreturns
func Do(httpClient *http.Client, req *http.Request, out any) (err error) {
	resp, doErr := httpClient.Do(req)
	if doErr != nil {
		return fmt.Errorf("do request: %s", doErr.Error())
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
	}()

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewTooManyRequestError(retryAfter(resp.Header.Get("Retry-After")))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return NewStatusCodeError(resp.StatusCode)
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return fmt.Errorf("read response: %s", readErr.Error())
	}

	if jsonErr := json.Unmarshal(body, out); jsonErr != nil {
		return fmt.Errorf("parse response: %s", jsonErr.Error())
	}
	return nil
}

func retryAfter(header string) time.Duration {
	minValue := decimal.NewFromInt(minRetryAfter)
	maxValue := decimal.NewFromInt(maxRetryAfter)

	value, parseErr := decimal.NewFromString(header)
	if parseErr != nil || value.LessThan(minValue) || value.GreaterThan(maxValue) {
		// в случае ошибки или неверных данных ставим 60 секунд
		value = decimal.NewFromInt(defaultRetryAfter)
	}
	return time.Duration(value.IntPart()) * time.Second
}
