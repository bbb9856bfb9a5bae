package idem

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/xerrors"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader 默认承载幂等键的 HTTP 请求头
const IdempotencyKeyHeader = "X-Idempotency-Key"

// errNotCacheable 非 2xx 响应不进入缓存（内部哨兵，不向调用方暴露）
var errNotCacheable = xerrors.New("idem: response not cacheable")

// cachedHTTPResponse 中间件缓存的 HTTP 响应快照
type cachedHTTPResponse struct {
	StatusCode int                 `json:"status_code" msgpack:"status_code"`
	Headers    map[string][]string `json:"headers" msgpack:"headers"`
	Body       []byte              `json:"body" msgpack:"body"`
}

// responseWriter 包装 gin.ResponseWriter，在写出的同时捕获响应内容
type responseWriter struct {
	gin.ResponseWriter
	body       *bytes.Buffer
	statusCode int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// GinMiddleware 创建 Gin 幂等中间件
//
// 行为：
//   - 请求头缺失幂等键时直接放行，不做幂等处理
//   - 首次请求：执行后续处理器并捕获响应，仅缓存 2xx 响应
//   - 重复请求：不执行处理器，按缓存内容重放状态码、响应头和响应体
//   - 缓存层故障时降级放行，幂等组件故障不应阻断业务
//
// 使用示例:
//
//	r.POST("/orders", cache.GinMiddleware(), createOrderHandler)
func (i *idem) GinMiddleware(opts ...MiddlewareOption) gin.HandlerFunc {
	opt := middlewareOptions{
		headerKey: IdempotencyKeyHeader,
		ttl:       i.cfg.DefaultTTL,
	}
	for _, o := range opts {
		o(&opt)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(opt.headerKey)
		if key == "" {
			c.Next()
			return
		}

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
			statusCode:     http.StatusOK,
		}
		c.Writer = writer

		executed := false
		result, err := i.Execute(c.Request.Context(), key, opt.ttl, func(_ context.Context) (any, error) {
			executed = true
			c.Next()

			if writer.statusCode < 200 || writer.statusCode >= 300 {
				return nil, errNotCacheable
			}
			if len(c.Errors) > 0 {
				return nil, c.Errors[0]
			}

			return &cachedHTTPResponse{
				StatusCode: writer.statusCode,
				Headers:    writer.Header().Clone(),
				Body:       writer.body.Bytes(),
			}, nil
		})

		if executed {
			// 响应已直接写给客户端，err 只意味着这次响应没有进入缓存
			return
		}

		if err != nil {
			// 缓存层故障降级放行
			i.logger.Warn("idempotency middleware degraded",
				clog.String("key", key), clog.Error(err))
			c.Next()
			return
		}

		resp, derr := decodeCachedResponse(result)
		if derr != nil {
			i.logger.Warn("cached response undecodable, re-executing",
				clog.String("key", key), clog.Error(derr))
			c.Next()
			return
		}

		// 重放缓存的响应
		for name, values := range resp.Headers {
			for _, v := range values {
				c.Writer.Header().Add(name, v)
			}
		}
		c.Writer.WriteHeader(resp.StatusCode)
		_, _ = c.Writer.Write(resp.Body)
		c.Abort()
	}
}

// decodeCachedResponse 把缓存值还原为响应快照
// 内存层命中时是原始结构体指针；耐久层命中时序列化器把它还原成 map，
// 统一经一次 JSON 往返归一化
func decodeCachedResponse(value any) (*cachedHTTPResponse, error) {
	if resp, ok := value.(*cachedHTTPResponse); ok {
		return resp, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var resp cachedHTTPResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
