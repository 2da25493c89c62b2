package mocks

import (
	mock "github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of kvstore.Store
type MockStore struct {
	mock.Mock
}

func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (_m *MockStore) Get(key string) (string, bool, error) {
	ret := _m.Called(key)
	return ret.String(0), ret.Bool(1), ret.Error(2)
}

func (_m *MockStore) Set(key string, value string) error {
	ret := _m.Called(key, value)
	return ret.Error(0)
}

func (_m *MockStore) Delete(key string) error {
	ret := _m.Called(key)
	return ret.Error(0)
}
