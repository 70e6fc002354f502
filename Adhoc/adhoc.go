package Adhoc

import (
	"RouteGrader/logger"
	"RouteGrader/model"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const TimeOutSeconds = 5

// aliveInterval is how often the instance re-registers.
var aliveInterval = TimeOutSeconds * time.Second

type RegisterRequest struct {
	Id        string `json:"id"`
	IP        string `json:"ip"`
	Port      int    `json:"port"`
	HTTPPort  int    `json:"httpPort"`
	Model     string `json:"model"`
	TimeStamp int64  `json:"timestamp"`
}

type RegisterResponse struct {
	Id      string `json:"id"`
	Success bool   `json:"success"`
}

type RegServerConfig struct {
	Port int
	Addr string
}

func (reg *RegServerConfig) SetAddress(addr string, port int) {
	reg.Addr = addr
	reg.Port = port
}

func (reg RegServerConfig) URL() string {
	return fmt.Sprintf("http://%s:%d/api/register", reg.Addr, reg.Port)
}

// Instance describes this server to the registry. Model is read on every
// heartbeat so a swapped model shows up in the next registration.
type Instance struct {
	IP       string
	RPCPort  int
	HTTPPort int
	Models   *model.Holder
}

func (inst Instance) request(id string) RegisterRequest {
	req := RegisterRequest{
		Id:        id,
		IP:        inst.IP,
		Port:      inst.RPCPort,
		HTTPPort:  inst.HTTPPort,
		TimeStamp: time.Now().Unix(),
	}
	if inst.Models != nil {
		if n := inst.Models.Current(); n != nil {
			req.Model = n.Digest()
		}
	}
	return req
}

func register(ctx context.Context, client *resty.Client, url string, req RegisterRequest) (RegisterResponse, error) {
	var respBody RegisterResponse
	resp, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		SetResult(&respBody).
		Post(url)
	if err != nil {
		return respBody, fmt.Errorf("request error: %w", err)
	}
	if resp.IsError() {
		return respBody, fmt.Errorf("server returned error: %s, body: %s", resp.Status(), resp.String())
	}
	return respBody, nil
}

// SendAliveMessage registers inst with the registry right away and then
// every aliveInterval until ctx is cancelled.
func SendAliveMessage(ctx context.Context, reg RegServerConfig, inst Instance, wg *sync.WaitGroup) {
	defer wg.Done()
	ticker := time.NewTicker(aliveInterval)
	defer ticker.Stop()
	client := resty.New().SetTimeout(TimeOutSeconds * time.Second)
	id := uuid.NewString()
	url := reg.URL()
	safeDoRequest := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Log().Error("SendAliveMessage panic recovered", zap.Any("panic", r))
			}
		}()
		if _, err := register(ctx, client, url, inst.request(id)); err != nil && ctx.Err() == nil {
			logger.Log().Error("registration failed", zap.String("url", url), zap.Error(err))
		}
	}
	safeDoRequest()
	for {
		select {
		case <-ctx.Done():
			logger.Log().Info("SendAliveMessage context cancelled, exiting goroutine.")
			return
		case <-ticker.C:
			safeDoRequest()
		}
	}
}

// GetOutboundIP returns the local address used for outbound traffic. Dialing
// UDP sends no packets; it only consults the routing table.
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
