package handler

import "campus-calendar/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Event        *EventHandler
	Category     *CategoryHandler
	Location     *LocationHandler
	Channels     *ChannelConfigHandler
	User         *UserHandler
	Subscription *SubscriptionHandler
	Export       *ExportHandler
	Import       *ImportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Event:        NewEventHandler(svc.Event),
		Category:     NewCategoryHandler(svc.Category),
		Location:     NewLocationHandler(svc.Location),
		Channels:     NewChannelConfigHandler(svc.Channels),
		User:         NewUserHandler(svc.User),
		Subscription: NewSubscriptionHandler(svc.Subscription),
		Export:       NewExportHandler(svc.Export),
		Import:       NewImportHandler(svc.Import),
	}
}
