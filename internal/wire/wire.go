package wire

import (
	"Atrium/internal/api"
	"Atrium/internal/api/config"
	"Atrium/internal/api/handler"
	"Atrium/internal/job"
	"Atrium/internal/pkg/cron"
	"Atrium/internal/pkg/kafka"
	pkgmongo "Atrium/internal/pkg/mongo"
	"Atrium/internal/pkg/redis"
	"Atrium/internal/repository"
	"Atrium/internal/service"
	log "log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	KafkaManager *kafka.ConsumerManager
	CronMgr      *cron.Manager
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	convRepo := repository.NewConversationRepo(db)
	operatorRepo := repository.NewOperatorRepo(db)
	messageRepo := pkgmongo.NewMessageRepo(mongoDB)

	bus := redis.NewBus()
	flags := redis.NewFlagStore()

	syncService := service.NewSyncService(messageRepo, convRepo, bus)
	readStateService := service.NewReadStateService(syncService)
	signalService := service.NewSignalService(
		flags, bus,
		time.Duration(cfg.Chat.TypingDebounceMs)*time.Millisecond,
		time.Duration(cfg.Chat.PresenceTTLSec)*time.Second,
	)
	identityService := service.NewIdentityService(convRepo, syncService)
	widgetService := service.NewWidgetService(syncService)
	inboxService := service.NewInboxService(operatorRepo, syncService, readStateService, signalService)

	// 通知生产者不可用时降级为纯在线模式
	var producer kafka.NotifyProducer
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		if producer, err = kafka.NewNotifyProducer(cfg); err != nil {
			log.Warn("Kafka 生产者初始化失败，离线通知停用", "err", err)
			producer = nil
		}
	}
	notifyService := service.NewNotifyService(producer)

	handlers := &api.HandlersGroup{
		AuthHandler:  handler.NewAuthHandler(inboxService),
		ChatHandler:  handler.NewChatHandler(identityService, widgetService, signalService, notifyService, syncService),
		InboxHandler: handler.NewInboxHandler(inboxService, syncService, signalService, notifyService),
		WsHandler:    handler.NewWsHandler(syncService, signalService, widgetService, inboxService, notifyService),
	}

	router := api.SetupRouter(handlers)

	var kafkaMgr *kafka.ConsumerManager
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		if kafkaMgr, err = kafka.NewConsumerManager(cfg); err != nil {
			return nil, err
		}
	}

	cronMgr := cron.NewCronManager(job.NewSignalSweepJob(flags, bus))

	return &ApplicationContainer{
		Router:       router,
		DB:           db,
		KafkaManager: kafkaMgr,
		CronMgr:      cronMgr,
	}, nil
}
