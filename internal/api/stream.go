package api

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/HankJediAssistant/hank-board/internal/consts"
	"github.com/HankJediAssistant/hank-board/internal/hub"
)

var connectedFrame = []byte(": connected" + consts.SSEFrameEnd)

// streamEvents keeps the connection open and writes one SSE frame per hub
// event. The stream ends when the client goes away, a write fails, or the hub
// drops the subscription.
func streamEvents(h *hub.Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		sub := h.Subscribe()
		defer h.Unsubscribe(sub)

		c.Response().WriteHeader(http.StatusOK)
		if _, err := c.Response().Write(connectedFrame); err != nil {
			c.Logger().Debug(err)
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-sub.Events():
				if !ok {
					return nil
				}
				if err := writeEvent(c.Response(), ev); err != nil {
					c.Logger().Debug(err)
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev hub.Event) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	frame := make([]byte, 0, len(consts.SSEDataPrefix)+len(data)+len(consts.SSEFrameEnd))
	frame = append(frame, consts.SSEDataPrefix...)
	frame = append(frame, data...)
	frame = append(frame, consts.SSEFrameEnd...)
	_, err = w.Write(frame)
	return err
}
