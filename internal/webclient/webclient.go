// Package webclient is the outbound HTTP seam. The synthesis generator, the
// semantic lookup and the style probe all fetch through a WebClient.
package webclient

import "context"

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}
