package main

import (
	"fmt"
	"net/http"
	"os"

	"video-sequence-api/application/services"
	"video-sequence-api/config"
	"video-sequence-api/infrastructure/adapters"
	"video-sequence-api/infrastructure/gin_interface/controllers"
	"video-sequence-api/middleware"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	generationConfig, err := config.GetGenerationConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get generation config")
	}

	processorConfig, err := config.GetProcessorConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get processor config")
	}

	sequenceConfig, err := config.GetSequenceConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get sequence config")
	}

	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get s3 config")
	}

	dynamoConfig, err := config.GetDynamoConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get dynamo config")
	}

	zeroLogger := adapters.NewZerologWrapper()

	panicHandler := func(p interface{}) {
		zeroLogger.Error(fmt.Errorf("%v", p), "Panic in worker pool")
	}

	workerPool, err := ants.NewPool(32, ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	sess := session.Must(session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	}))

	s3Client := s3.New(sess)
	dynamoClient := dynamodb.New(sess)

	contentFetcher := adapters.NewContentFetcher(zeroLogger)

	generationClient := adapters.NewVideoGenerationClient(generationConfig, zeroLogger)

	videoProcessor := adapters.NewFFmpegVideoProcessor(processorConfig, contentFetcher, zeroLogger)

	mediaStore := adapters.NewS3MediaStore(s3Client, s3Config, zeroLogger)

	sequenceRepository := adapters.NewDynamoSequenceRepository(zeroLogger, dynamoClient, dynamoConfig)

	continuityPublisher := services.NewContinuityPublisher(zeroLogger, videoProcessor, mediaStore)

	sceneEditor := services.NewSceneEditor(zeroLogger, sequenceRepository, mediaStore, sequenceConfig)

	orchestrator := services.NewSequenceOrchestrator(zeroLogger, sequenceRepository, generationClient,
		videoProcessor, mediaStore, continuityPublisher, sequenceConfig)

	sequenceController := controllers.NewSequenceController(zeroLogger, workerPool, sceneEditor, orchestrator)

	router := gin.Default()

	err = router.SetTrustedProxies(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set trusted proxies!")
	}

	router.Use(middleware.RequestLogger(zeroLogger))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		if !generationClient.Healthy() {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"generation": generationClient.Healthy()})
	})

	sequenceController.RegisterRoutes(router)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	err = router.Run(":" + port)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server!")
	}
}
