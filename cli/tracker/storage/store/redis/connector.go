package redis

/*
Настройки, которые могут быть в конфиге для подключения хранилища:

addr = "localhost:6379"
password = ""
channel = "geotrack:samples"
*/

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const publishTimeout = 5 * time.Second

type Connector struct {
	client *redis.Client
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	if c.config["channel"] == "" {
		c.config["channel"] = "geotrack:samples"
	}
	addr := c.config["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	c.client = redis.NewClient(&redis.Options{Addr: addr, Password: c.config["password"]})

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis недоступен: %v", err)
	}
	return nil
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на отметку")
	}

	data, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации отметки: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err = c.client.Publish(ctx, c.config["channel"], data).Err(); err != nil {
		return fmt.Errorf("не удалось опубликовать сообщение в Redis: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
