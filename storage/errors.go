package storage

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"activity-events/domain"
)

var retryStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// rejectedErrorCodes refuse one entity for its size. The event is at fault, not the table.
var rejectedErrorCodes = []string{
	"PropertyValueTooLarge",
	"PropertyNameTooLong",
	"TooManyProperties",
	"EntityTooLarge",
	"RequestBodyTooLarge",
}

// classify maps a table service error onto the store error taxonomy. A record the
// service refuses for its size is rejected. Other rejections of the request (missing
// table, invalid property type, auth) are schema or configuration faults; everything
// else, transport errors included, is transient.
func classify(op, view string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		if respErr.StatusCode == http.StatusRequestEntityTooLarge || slices.Contains(rejectedErrorCodes, respErr.ErrorCode) {
			return domain.Rejected(op, view, err)
		}
		if respErr.ErrorCode == string(aztables.TableNotFound) {
			return domain.SchemaMismatch(op, view, err)
		}
		if respErr.StatusCode >= 400 && respErr.StatusCode < 500 && !slices.Contains(retryStatusCodes, respErr.StatusCode) {
			return domain.SchemaMismatch(op, view, err)
		}
	}
	return domain.Unavailable(op, view, err)
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound && respErr.ErrorCode != string(aztables.TableNotFound)
}
