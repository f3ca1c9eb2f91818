package http

import (
	nethttp "net/http"

	"github.com/gaborage/go-bricks-authclient/logger"
)

// logRequest logs the outgoing attempt; payloads only at debug level when enabled
func (c *client) logRequest(req *nethttp.Request, body []byte, requestID string, attempt int) {
	c.logger.Info().
		Str("direction", "outbound").
		Str("method", req.Method).
		Str("url", logger.RedactURL(req.URL.String())).
		Str("request_id", requestID).
		Int("attempt", attempt).
		Int("header_count", len(req.Header)).
		Int("body_size", len(body)).
		Msg("REST client request")

	if !c.config.LogPayloads {
		return
	}
	c.logger.Debug().
		Str("request_id", requestID).
		Interface("headers", req.Header).
		Bytes("body", c.truncate(body)).
		Msg("REST client request payload")
}

// logResponse logs the incoming response
func (c *client) logResponse(resp *Response, requestID string, attempt int) {
	event := c.logger.Info()
	if resp.StatusCode >= nethttp.StatusInternalServerError {
		event = c.logger.Warn()
	}
	event.
		Str("direction", "inbound").
		Str("request_id", requestID).
		Int("attempt", attempt).
		Int("status", resp.StatusCode).
		Dur("elapsed", resp.Stats.ElapsedTime).
		Int64("call_count", resp.Stats.CallCount).
		Int("body_size", len(resp.Body)).
		Msg("REST client response")

	if !c.config.LogPayloads {
		return
	}
	c.logger.Debug().
		Str("request_id", requestID).
		Interface("headers", resp.Headers).
		Bytes("body", c.truncate(resp.Body)).
		Msg("REST client response payload")
}

func (c *client) truncate(body []byte) []byte {
	limit := c.config.MaxPayloadLogBytes
	if limit <= 0 || len(body) <= limit {
		return body
	}
	return body[:limit]
}
