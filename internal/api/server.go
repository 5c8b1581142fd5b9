package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/elongilad/scav-hunt-engine/docs"
	v1 "github.com/elongilad/scav-hunt-engine/internal/api/handler/v1"
	"github.com/elongilad/scav-hunt-engine/internal/api/middleware"
	"github.com/elongilad/scav-hunt-engine/internal/config"
	"github.com/elongilad/scav-hunt-engine/internal/observability"
	"github.com/elongilad/scav-hunt-engine/internal/repository"
	"github.com/elongilad/scav-hunt-engine/internal/repository/dao"
	"github.com/elongilad/scav-hunt-engine/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Engine *service.Engine
}

func NewServer(conf *config.AppConfig, db *gorm.DB) *Server {
	gin.SetMode(conf.Gin.Mode)
	router := gin.New()

	engine, audit := initEngine(conf, db)
	s := &Server{
		Config: conf,
		Router: router,
		Engine: engine,
	}

	s.MountMiddlewares()

	engineHandler := v1.NewEngineHandler(s.Engine)
	notificationHandler := v1.NewNotificationHandler(s.Engine, audit)
	streamHandler := v1.NewStreamHandler(s.Engine)
	s.MountHandlers(engineHandler, notificationHandler, streamHandler)

	return s
}

func initEngine(conf *config.AppConfig, db *gorm.DB) (*service.Engine, *repository.NotificationRepository) {
	journalDAO := dao.NewJournalDAO(db)
	journal := repository.NewJournalRepository(journalDAO)

	notificationDAO := dao.NewNotificationDAO(db)
	audit := repository.NewNotificationRepository(notificationDAO)

	metrics, err := observability.NewMetrics()
	if err != nil {
		zap.L().Warn("metrics unavailable, continuing without", zap.Error(err))
	}

	return service.NewEngine(conf.Engine, journal, audit, metrics, nil), audit
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(engineHandler *v1.EngineHandler, notificationHandler *v1.NotificationHandler, streamHandler *v1.StreamHandler) {
	const basePath = "/api/v1"

	engine := s.Router.Group(basePath)
	{
		engine.POST("/events", engineHandler.HandleSubmitEvent)
		engine.GET("/state", engineHandler.HandleGetEventState)
		engine.POST("/phase", engineHandler.HandleRequestPhase)

		engine.GET("/teams", engineHandler.HandleGetTeams)
		engine.POST("/teams", engineHandler.HandleRegisterTeam)
		engine.GET("/teams/:teamID/visits", engineHandler.HandleGetTeamVisits)

		engine.GET("/stations", engineHandler.HandleGetStations)
		engine.POST("/stations", engineHandler.HandleAddStation)
		engine.POST("/stations/activate", engineHandler.HandleBulkActivate)

		engine.GET("/aggregates", engineHandler.HandleGetAggregates)
		engine.GET("/insights", engineHandler.HandleGetInsights)
	}

	notifications := s.Router.Group(basePath)
	{
		notifications.GET("/notifications", notificationHandler.HandleListUnread)
		notifications.GET("/notifications/history", notificationHandler.HandleHistory)
		notifications.POST("/notifications", notificationHandler.HandlePublish)
		notifications.POST("/notifications/emergency", notificationHandler.HandleEmergency)
		notifications.POST("/notifications/:notificationID/read", notificationHandler.HandleMarkRead)
		notifications.DELETE("/notifications/:notificationID", notificationHandler.HandleDelete)
		notifications.GET("/stream", streamHandler.HandleStream)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Live Event Orchestration API"
	docs.SwaggerInfo.Description = "Real-time orchestration engine for multi-team scavenger hunt events."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
