package discovery

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/consul/api"
)

// agent is the subset of the Consul agent API used for registration.
type agent interface {
	ServiceRegister(service *api.AgentServiceRegistration) error
	ServiceDeregister(serviceID string) error
}

type ConsulClient struct {
	agent agent
}

func NewConsulClient(address string) (*ConsulClient, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	return &ConsulClient{agent: client.Agent()}, nil
}

// RegisterService registers an HTTP service with a /health check on host:port.
func (c *ConsulClient) RegisterService(serviceID, serviceName, host, port string, tags ...string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", port, err)
	}

	registration := &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: host,
		Port:    p,
		Tags:    tags,
		Check: &api.AgentServiceCheck{
			HTTP:                           fmt.Sprintf("http://%s:%d/health", host, p),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	}

	return c.agent.ServiceRegister(registration)
}

// RegisterGRPCService registers a gRPC service with a TCP check.
func (c *ConsulClient) RegisterGRPCService(serviceID, serviceName, host, port string) error {
	p, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q: %w", port, err)
	}

	return c.agent.ServiceRegister(&api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: host,
		Port:    p,
		Tags:    []string{"grpc"},
		Check: &api.AgentServiceCheck{
			TCP:                            fmt.Sprintf("%s:%d", host, p),
			Interval:                       "10s",
			Timeout:                        "5s",
			DeregisterCriticalServiceAfter: "30s",
		},
	})
}

func (c *ConsulClient) DeregisterService(serviceID string) error {
	return c.agent.ServiceDeregister(serviceID)
}
