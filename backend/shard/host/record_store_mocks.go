// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package host

import (
	reflect "reflect"

	common "github.com/Fantom-foundation/shardmap/go/common"
	gomock "go.uber.org/mock/gomock"
)

// MockRecordStore is a mock of RecordStore interface.
type MockRecordStore struct {
	ctrl     *gomock.Controller
	recorder *MockRecordStoreMockRecorder
}

// MockRecordStoreMockRecorder is the mock recorder for MockRecordStore.
type MockRecordStoreMockRecorder struct {
	mock *MockRecordStore
}

// NewMockRecordStore creates a new mock instance.
func NewMockRecordStore(ctrl *gomock.Controller) *MockRecordStore {
	mock := &MockRecordStore{ctrl: ctrl}
	mock.recorder = &MockRecordStoreMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockRecordStore) EXPECT() *MockRecordStoreMockRecorder {
	return m.recorder
}

// Allocate mocks base method.
func (m *MockRecordStore) Allocate(address common.Address, size int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Allocate", address, size)
	ret0, _ := ret[0].(error)
	return ret0
}

// Allocate indicates an expected call of Allocate.
func (mr *MockRecordStoreMockRecorder) Allocate(address, size any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Allocate", reflect.TypeOf((*MockRecordStore)(nil).Allocate), address, size)
}

// Close mocks base method.
func (m *MockRecordStore) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockRecordStoreMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockRecordStore)(nil).Close))
}

// Delete mocks base method.
func (m *MockRecordStore) Delete(address common.Address) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Delete", address)
	ret0, _ := ret[0].(error)
	return ret0
}

// Delete indicates an expected call of Delete.
func (mr *MockRecordStoreMockRecorder) Delete(address any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Delete", reflect.TypeOf((*MockRecordStore)(nil).Delete), address)
}

// Has mocks base method.
func (m *MockRecordStore) Has(address common.Address) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Has", address)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Has indicates an expected call of Has.
func (mr *MockRecordStoreMockRecorder) Has(address any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Has", reflect.TypeOf((*MockRecordStore)(nil).Has), address)
}

// Load mocks base method.
func (m *MockRecordStore) Load(address common.Address) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Load", address)
	ret0, _ := ret[0].([]byte)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Load indicates an expected call of Load.
func (mr *MockRecordStoreMockRecorder) Load(address any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Load", reflect.TypeOf((*MockRecordStore)(nil).Load), address)
}

// Reallocate mocks base method.
func (m *MockRecordStore) Reallocate(address common.Address, size int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Reallocate", address, size)
	ret0, _ := ret[0].(error)
	return ret0
}

// Reallocate indicates an expected call of Reallocate.
func (mr *MockRecordStoreMockRecorder) Reallocate(address, size any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Reallocate", reflect.TypeOf((*MockRecordStore)(nil).Reallocate), address, size)
}

// Size mocks base method.
func (m *MockRecordStore) Size(address common.Address) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Size", address)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Size indicates an expected call of Size.
func (mr *MockRecordStoreMockRecorder) Size(address any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Size", reflect.TypeOf((*MockRecordStore)(nil).Size), address)
}

// Store mocks base method.
func (m *MockRecordStore) Store(address common.Address, data []byte) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Store", address, data)
	ret0, _ := ret[0].(error)
	return ret0
}

// Store indicates an expected call of Store.
func (mr *MockRecordStoreMockRecorder) Store(address, data any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Store", reflect.TypeOf((*MockRecordStore)(nil).Store), address, data)
}
