package handler

import (
	"callinvite/internal/app/access"
	"callinvite/internal/app/invite"
	"callinvite/internal/app/relay"
	"callinvite/internal/configs"
)

// AppDeps carries the services shared by every handler.
type AppDeps struct {
	Config  *configs.AppConfig
	Invites *invite.Service
	Tokens  *access.Issuer
	Relay   *relay.Manager
}
