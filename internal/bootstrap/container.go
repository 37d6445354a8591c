package bootstrap

import (
	"context"

	"support-chat-be/internal/config"
	"support-chat-be/internal/controller"
	"support-chat-be/internal/handler"
	"support-chat-be/internal/pkg/logger"
	"support-chat-be/internal/pkg/mailer"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/internal/service"
	"support-chat-be/internal/websocket"
	"support-chat-be/pkg/chat/conversation"
	"support-chat-be/pkg/chat/handoff"
	"support-chat-be/pkg/chat/intent"
	"support-chat-be/pkg/chat/message"
	"support-chat-be/pkg/chat/session"
	"support-chat-be/pkg/events"
	pktNats "support-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	LiveChatController controller.ILiveChatController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Background services, started by Run
	PublisherService    service.IPublisherService
	ConsumerService     service.IConsumerService
	NotificationService *service.NotificationService

	Logger  logger.ILogger
	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	c := &Container{Logger: sysLogger}

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		sysLogger,
	)

	// 2. Event Bus
	// Publishing waits for the websocket consumer so reveal frames keep
	// their order.
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256, BlockPublishUntilSubscriberAck: true},
		watermill.NewStdLogger(false, false),
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS
	var eventPublisher events.Publisher = events.NopPublisher{}
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher, chat events stay local", map[string]interface{}{"error": err.Error()})
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Subscriber", map[string]interface{}{"error": err.Error()})
		natsSub = nil
	} else {
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	var rdb *redis.Client
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to parse Redis URL. Using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to Redis, websocket hub runs standalone", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		rdb = nil
	} else {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.App.HubLogFilePath)
	c.WebSocketHub = websocket.NewHub(rdb, wsLogger)

	// 3. Chat engine
	c.PublisherService = service.NewPublisherService(service.RevealTopic, pubSub, 1024, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, service.RevealTopic, c.WebSocketHub, wsLogger)

	store := message.NewStore(uowFactory, sysLogger)
	sessions := session.NewRegistry(uowFactory, store, sysLogger)
	coordinator := handoff.NewCoordinator(uowFactory, cfg.Chat.HandoffPollInterval, cfg.Chat.HandoffTimeout, wsLogger)
	manager := conversation.NewManager(conversation.Dependencies{
		Messages: store,
		Sessions: sessions,
		Rules:    intent.NewLoader(uowFactory, cfg.Chat.ChipRulesTTL, sysLogger),
		Handoff:  coordinator,
		Sink:     c.PublisherService,
		Logger:   sysLogger,
	}, conversation.Options{
		RevealDelay:   cfg.Chat.RevealDelay,
		FollowUpDelay: cfg.Chat.FollowUpDelay,
		WriteRetries:  cfg.Chat.RevealWriteRetries,
		IdleTTL:       cfg.Chat.SessionIdleTTL,
	})
	c.closers = append(c.closers, manager.Shutdown)

	// 4. Services
	chatService := service.NewChatService(service.ChatServiceDeps{
		Manager:       manager,
		Sessions:      sessions,
		Messages:      store,
		Handoff:       coordinator,
		Publisher:     eventPublisher,
		Mailer:        emailService,
		OperatorInbox: cfg.Chat.OperatorInbox,
		Logger:        sysLogger,
	})
	liveChatService := service.NewLiveChatService(coordinator, manager, eventPublisher, sysLogger)

	if natsSub != nil {
		c.NotificationService = service.NewNotificationService(natsSub, manager, c.WebSocketHub, websocket.OperatorsKey, wsLogger)
	}

	// 5. Controllers
	c.ChatController = controller.NewChatController(chatService)
	c.LiveChatController = controller.NewLiveChatController(liveChatService, cfg.App.JwtSecret)
	c.NotificationHandler = handler.NewNotificationHandler(sessions, c.WebSocketHub, cfg.App.JwtSecret, wsLogger)

	return c
}

// Run starts the background workers. They stop when ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	go c.PublisherService.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return err
	}
	if c.NotificationService != nil {
		if err := c.NotificationService.Start(ctx); err != nil {
			// operators can still poll the waiting list
			c.Logger.Warn("Bootstrap", "Chat events will not reach operator dashboards", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
