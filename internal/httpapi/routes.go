package httpapi

import (
	"telecom-rating/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the rating API under /api. authMW must populate auth.Info;
// lookupMW runs after role checks on the lookup route only.
func Register(r gin.IRouter, h Handlers, authMW gin.HandlerFunc, lookupMW ...gin.HandlerFunc) {
	api := r.Group("/api")
	api.Use(authMW)

	read := rbac.RequireAnyRole(rbac.Readers...)
	write := rbac.RequireAnyRole(rbac.Writers...)

	tariffs := api.Group("/tariffs")
	{
		tariffs.POST("/list", read, h.ListTariffs)
		tariffs.GET("/:gid", read, h.GetTariff)
		tariffs.POST("", write, h.CreateTariff)
		tariffs.PUT("/:gid", write, h.UpdateTariff)
		tariffs.DELETE("/:gid", write, h.DeleteTariff)
	}

	rates := api.Group("/rates")
	{
		rates.POST("/list", read, h.ListRates)
		rates.GET("/:gid", read, h.GetRate)
		rates.POST("", write, h.CreateRate)
		rates.PUT("/:gid", write, h.UpdateRate)
		rates.DELETE("/:gid", write, h.DeleteRate)
	}

	// Older clients update rates at /api/{gid}.
	api.PUT("/:gid", write, h.UpdateRate)

	groups := api.Group("/destination-groups")
	{
		groups.GET("", read, h.ListGroups)
		groups.GET("/:id", read, h.GetGroup)
		groups.POST("", write, h.CreateGroup)
		groups.PUT("/:id", write, h.UpdateGroup)
		groups.DELETE("/:id", write, h.DeleteGroup)
	}

	lookup := append([]gin.HandlerFunc{rbac.RequireAnyRole(rbac.LookupCallers...)}, lookupMW...)
	api.GET("/lookup", append(lookup, h.FindRate)...)
}
