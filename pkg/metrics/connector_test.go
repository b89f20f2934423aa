package metrics

import (
	"context"
	"database/sql/driver"
	"errors"
)

type nopConnector struct{}

func (nopConnector) Connect(context.Context) (driver.Conn, error) {
	return nil, errors.New("测试连接器不支持建立连接")
}

func (nopConnector) Driver() driver.Driver { return nopDriver{} }

type nopDriver struct{}

func (nopDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("测试驱动不支持建立连接")
}
