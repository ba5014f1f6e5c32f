package svc

import (
	"pump-sentinel-sol/internal/config"
	"pump-sentinel-sol/internal/pkg/nacos"
)

type ServiceContext struct {
	Cfg          *config.Config
	NacosManager *nacos.NacosManager
}

func NewServiceContext(c *config.Config) *ServiceContext {
	// Nacos 可缺省：本地开发不依赖注册中心
	var nacosManager *nacos.NacosManager
	if c.NacosConfig != nil {
		m, err := nacos.NewNacosManager(c.NacosConfig)
		if err != nil {
			panic(err)
		}
		nacosManager = m
	}

	return &ServiceContext{
		Cfg:          c,
		NacosManager: nacosManager,
	}
}
