package echoapi

import (
	"regexp"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/realtime"
)

var chatRoomRx = regexp.MustCompile(`^\w+$`)

type wsApi struct {
	registry *realtime.Registry
	logger   core.Logger
	upgrader websocket.Upgrader
}

func registerWsAPI(g *echo.Group, deps ServerDeps) {
	api := wsApi{
		registry: deps.Registry,
		logger:   deps.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	jwt := middleware.JWTWithConfig(newWsJWTConfig(deps.Conf))
	g.GET("/notifications", api.notifications, jwt)
	g.GET("/chat/:room", api.chat, jwt)
}

func (api *wsApi) notifications(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	sess, err := realtime.NewNotificationSession(api.registry, conn, claims.Username, api.logger)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "opening notification session")
	}
	sess.Run()
	return nil
}

func (api *wsApi) chat(ctx echo.Context) error {
	room := ctx.Param("room")
	if !chatRoomRx.MatchString(room) {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return errors.Wrap(err, "upgrading connection")
	}

	sess, err := realtime.NewChatSession(api.registry, conn, room, claims.Username, api.logger)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "opening chat session")
	}
	sess.Run()
	return nil
}
