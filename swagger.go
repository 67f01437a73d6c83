package community_sdk

import (
	"github.com/cydxin/community-sdk/docs"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterSwagger 在 Gin 路由（或路由组）上注册 Swagger UI。
// 默认路由：/swagger/*any；host 非空时覆盖文档里的 host（反向代理后常用）
//
// 使用示例：
//
//	r := gin.Default()
//	community_sdk.RegisterSwagger(r, "/swagger/*any", "")
//
// 访问：http://localhost:8080/swagger/index.html
func RegisterSwagger(r gin.IRoutes, path, host string) {
	if path == "" {
		path = "/swagger/*any"
	}
	if host != "" {
		docs.SwaggerInfo.Host = host
	}
	r.GET(path, ginSwagger.WrapHandler(swaggerFiles.Handler))
}
