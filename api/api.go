package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidenwere/kobo"
	"github.com/davidenwere/kobo/api/middleware"
	"github.com/davidenwere/kobo/config"
	"github.com/davidenwere/kobo/internal/apierror"
)

type Api struct {
	kobo   *kobo.Kobo
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router

	router.POST("/auth/register", a.Register)
	router.POST("/auth/login", a.Login)

	authed := router.Group("/", middleware.JWTAuthMiddleware())
	authed.GET("/profile", a.GetProfile)
	authed.PUT("/profile", a.UpdateProfile)
	authed.PUT("/profile/password", a.ChangePassword)
	authed.DELETE("/profile", a.DeleteProfile)

	authed.POST("/accounts", a.CreateAccount)
	authed.GET("/accounts", a.GetAccounts)
	authed.GET("/accounts/:number", a.GetAccount)
	authed.DELETE("/accounts/:number", a.DeleteAccount)

	authed.POST("/accounts/:number/transactions/deposit", a.Deposit)
	authed.POST("/accounts/:number/transactions/withdraw", a.Withdraw)
	authed.POST("/accounts/:number/transactions/transfer", a.Transfer)
	authed.GET("/accounts/:number/transactions", a.GetHistory)
	authed.GET("/transactions/:reference", a.GetTransaction)

	admin := router.Group("/admin", middleware.JWTAuthMiddleware(), middleware.AdminOnly())
	admin.GET("/dashboard", a.Dashboard)
	admin.GET("/users", a.ListUsers)
	admin.GET("/users/:id", a.GetUser)
	admin.PUT("/users/:id/status", a.UpdateUserStatus)
	admin.DELETE("/users/:id", a.DeleteUser)
	admin.GET("/accounts", a.ListAllAccounts)
	admin.GET("/stats/:stat", a.GetStat)

	return a.router
}

func NewAPI(k *kobo.Kobo) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{kobo: k, router: r}
}

// handleError maps an engine error onto an HTTP response. Coded errors keep
// their code in the body; anything else is an opaque 500.
func handleError(c *gin.Context, err error) {
	status := apierror.MapErrorToHTTPStatus(err)
	if apiErr, ok := err.(apierror.APIError); ok {
		c.JSON(status, gin.H{"error": apiErr.Message, "code": apiErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
