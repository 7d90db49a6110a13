package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"path"
	"regexp"
	"time"

	"qrpass/src/boot"
	"qrpass/src/checkin"
	"qrpass/src/config"
	"qrpass/src/lib"
	"qrpass/src/lib/abacate"
	"qrpass/src/middlewares"
	"qrpass/src/payments"
	"qrpass/src/store"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

const (
	apiPrefix string = "/api/v1"
)

var ticketPriceValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return false
	}
	return !price.IsNegative()
}

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("ticketprice", ticketPriceValidatorFunc)
	}
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middlewares.SecureHeaders)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func initLogger() {
	cwd, _ := os.Getwd()
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	apiEnv := os.Getenv("API_ENV")
	if apiEnv == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			panic(err)
		}
	}
	initLogger()
	registerValidations()

	conn := boot.InitDb()

	st := store.NewGormStore(conn)
	gateway := abacate.New(config.AbacateBaseURL(), config.AbacateAPIKey())
	svc := payments.NewService(st, gateway)
	gate := checkin.NewGate(st)

	boot.InitScheduler()
	if _, err := lib.CreateCronJob(func() {
		if err := svc.SweepStalePending(context.Background()); err != nil {
			log.Printf("Error sweeping stale charges: %s\n", err.Error())
		}
	}, 10*time.Minute); err != nil {
		log.Printf("Error scheduling charge sweep: %s\n", err.Error())
	}

	router := setupRouter()

	appHost := os.Getenv("APP_HOST")
	if apiEnv == "local" {
		router.Use(cors.Default())
	} else {
		cc := cors.DefaultConfig()
		cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PATCH", "PUT", "DELETE", "HEAD")
		cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", scannerTokenHeader)
		cc.AllowOriginFunc = func(origin string) bool {
			match, _ := regexp.MatchString(appHost, origin)
			return match
		}
		cc.AllowCredentials = true
		cc.AllowAllOrigins = false
		router.Use(cors.New(cc))
	}

	webhookRoutes(router, svc, config.AbacateWebhookSecret())
	publicPaymentRoutes(router, svc)
	publicEventRoutes(router, st)
	scannerRoutes(router, st, gate)

	authorized := router.Group(apiPrefix)
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized = eventHandlers(authorized, st)
		authorized = ticketHandlers(authorized, st, svc)
		authorized = paymentHandlers(authorized, svc)
		authorized = checkinHandlers(authorized, st, gate)
	}

	defer boot.StopScheduler()

	if err := router.Run(":9090"); err != nil {
		log.Fatalf("Failed to start server: %s", err)
	}
}
