package nats

/*
Настройки, которые могут быть в конфиге для подключения хранилища:

servers = "nats://localhost:4222"
topic = "geotrack.samples"
*/

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

type Connector struct {
	connection *nats.Conn
	config     map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	var (
		err error
	)
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg
	if c.config["topic"] == "" {
		c.config["topic"] = "geotrack.samples"
	}
	servers := c.config["servers"]
	if servers == "" {
		servers = nats.DefaultURL
	}

	if c.connection, err = nats.Connect(servers, nats.Name("geotrack")); err != nil {
		return fmt.Errorf("ошибка подключения к NATS: %v", err)
	}
	return err
}

func (c *Connector) Save(msg interface{ ToBytes() ([]byte, error) }) error {
	if msg == nil {
		return fmt.Errorf("некорректная ссылка на отметку")
	}

	data, err := msg.ToBytes()
	if err != nil {
		return fmt.Errorf("ошибка сериализации отметки: %v", err)
	}

	if err = c.connection.Publish(c.config["topic"], data); err != nil {
		return fmt.Errorf("не удалось отправить сообщение в NATS: %v", err)
	}
	return nil
}

func (c *Connector) Close() error {
	if c.connection == nil {
		return nil
	}
	return c.connection.Drain()
}
