package discovery

import (
	"fmt"
	"os"

	consulapi "github.com/hashicorp/consul/api"
	"go.uber.org/zap"
)

type Registration struct {
	ConsulAddr  string
	ServiceName string
	Address     string
	Port        int
}

// Registrar announces this instance to a Consul agent with an HTTP health
// check against /healthz.
type Registrar struct {
	client *consulapi.Client
	id     string
	logger *zap.Logger
}

func (r Registration) serviceID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-%s-%d", r.ServiceName, host, r.Port)
}

func (r Registration) agentService() *consulapi.AgentServiceRegistration {
	addr := r.Address
	if addr == "" {
		addr = "127.0.0.1"
	}
	return &consulapi.AgentServiceRegistration{
		ID:      r.serviceID(),
		Name:    r.ServiceName,
		Address: addr,
		Port:    r.Port,
		Tags:    []string{"http", "api"},
		Check: &consulapi.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/healthz", addr, r.Port),
			Interval:                       "10s",
			Timeout:                        "2s",
			DeregisterCriticalServiceAfter: "1m",
		},
	}
}

func Register(r Registration, logger *zap.Logger) (*Registrar, error) {
	consulCfg := consulapi.DefaultConfig()
	consulCfg.Address = r.ConsulAddr
	client, err := consulapi.NewClient(consulCfg)
	if err != nil {
		return nil, err
	}
	svc := r.agentService()
	if err := client.Agent().ServiceRegister(svc); err != nil {
		return nil, fmt.Errorf("consul register: %w", err)
	}
	logger.Info("registered with consul", zap.String("id", svc.ID), zap.String("consul", r.ConsulAddr))
	return &Registrar{client: client, id: svc.ID, logger: logger}, nil
}

func (r *Registrar) Deregister() error {
	if err := r.client.Agent().ServiceDeregister(r.id); err != nil {
		return fmt.Errorf("consul deregister: %w", err)
	}
	r.logger.Info("deregistered from consul", zap.String("id", r.id))
	return nil
}
