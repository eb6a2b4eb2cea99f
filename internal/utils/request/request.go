package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const userAgent = "prospector/1.0"

// New returns a resty client that honours proxy environment variables and
// never retries: a failed call must surface immediately so the caller can
// fall back.
func New(timeout time.Duration) *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")
}
