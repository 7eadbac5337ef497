package cloud

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/merabytes/acido/pkg/acido"
)

// classify wraps a provider error in acido.CloudError using the ARM error
// code when available, falling back to the HTTP status, then to a fatal
// default for a response it doesn't recognize. An error that carries no
// provider response at all (e.g. a network failure) is classified as
// transient.
func classify(op string, err error) *acido.CloudError {
	if err == nil {
		return nil
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch {
		case strings.EqualFold(respErr.ErrorCode, "QuotaExceeded"),
			strings.EqualFold(respErr.ErrorCode, "OperationNotAllowed"),
			respErr.StatusCode == http.StatusTooManyRequests:
			return acido.NewCloudError(op, acido.ClassQuota, err)
		case respErr.StatusCode == http.StatusUnauthorized,
			respErr.StatusCode == http.StatusForbidden,
			strings.EqualFold(respErr.ErrorCode, "AuthorizationFailed"):
			return acido.NewCloudError(op, acido.ClassAuth, err)
		case respErr.StatusCode == http.StatusNotFound:
			return acido.NewCloudError(op, acido.ClassNotFound, err)
		case respErr.StatusCode == http.StatusConflict:
			return acido.NewCloudError(op, acido.ClassConflict, err)
		case respErr.StatusCode >= 500, respErr.StatusCode == http.StatusRequestTimeout:
			return acido.NewCloudError(op, acido.ClassTransient, err)
		default:
			return acido.NewCloudError(op, acido.ClassFatal, err)
		}
	}

	return acido.NewCloudError(op, acido.ClassTransient, err)
}
