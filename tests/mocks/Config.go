package mocks

import (
	"time"

	"github.com/flokiorg/userhub/config"
	mock "github.com/stretchr/testify/mock"
)

// MockConfig is a testify mock of config.Config
type MockConfig struct {
	mock.Mock
}

func NewMockConfig(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockConfig {
	m := &MockConfig{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (_m *MockConfig) GetEnv() *config.AppConfig {
	ret := _m.Called()
	return ret.Get(0).(*config.AppConfig)
}

func (_m *MockConfig) GetUserApiURL() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *MockConfig) GetFetchTimeout() time.Duration {
	ret := _m.Called()
	return ret.Get(0).(time.Duration)
}

func (_m *MockConfig) GetStoreBackend() string {
	ret := _m.Called()
	return ret.String(0)
}

func (_m *MockConfig) GetDefaultWorkDir() string {
	ret := _m.Called()
	return ret.String(0)
}
