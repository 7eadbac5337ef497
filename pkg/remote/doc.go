// Package remote implements the Remote Request Handler: a small JSON
// request/response surface that lets an external caller (a queue consumer,
// a webhook, a thin HTTP client) drive the same operations as the CLI
// without a direct process invocation. It validates the request body,
// dispatches to the Fleet Controller, and shapes the result into the
// {statusCode, body} envelope every operation returns.
package remote
