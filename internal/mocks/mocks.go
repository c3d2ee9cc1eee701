// File: internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/driver"
)

// -- Driver Mock --

// MockDriver mocks the driver.Driver interface.
type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *MockDriver) Click(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) DoubleClick(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) RightClick(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) Hover(ctx context.Context, sel schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) DragAndDrop(ctx context.Context, source, target schemas.Selector) error {
	return m.Called(ctx, source, target).Error(0)
}

func (m *MockDriver) SendKeys(ctx context.Context, sel schemas.Selector, text string) error {
	return m.Called(ctx, sel, text).Error(0)
}

func (m *MockDriver) PressKey(ctx context.Context, sel *schemas.Selector, key string) error {
	return m.Called(ctx, sel, key).Error(0)
}

func (m *MockDriver) SelectOption(ctx context.Context, sel schemas.Selector, option string) error {
	return m.Called(ctx, sel, option).Error(0)
}

func (m *MockDriver) Scroll(ctx context.Context, sel *schemas.Selector) error {
	return m.Called(ctx, sel).Error(0)
}

func (m *MockDriver) Wait(ctx context.Context, d time.Duration) error {
	return m.Called(ctx, d).Error(0)
}

func (m *MockDriver) ExecuteScript(ctx context.Context, script string, args []any) (string, error) {
	res := m.Called(ctx, script, args)
	return res.String(0), res.Error(1)
}

func (m *MockDriver) Screenshot(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Text(ctx context.Context, sel schemas.Selector) (string, error) {
	args := m.Called(ctx, sel)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Title(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockDriver) Close() error {
	return m.Called().Error(0)
}

// -- Driver Factory Mock --

// MockDriverFactory hands out MockDrivers through the driver.Factory shape
// and remembers each one together with the console hook and configuration
// the caller passed, so tests can reach into sessions the registry opened.
type MockDriverFactory struct {
	mutex    sync.Mutex
	drivers  []*MockDriver
	consoles []driver.ConsoleFunc
	configs  []driver.Config

	// NewErr fails the next New call when set, then clears itself.
	NewErr error
	// Prepare runs on each fresh driver before it is handed out, so
	// expectations can be installed for drivers created behind the scenes.
	Prepare func(d *MockDriver)
}

// New satisfies driver.Factory.
func (f *MockDriverFactory) New(_ context.Context, cfg driver.Config, _ *zap.Logger, onConsole driver.ConsoleFunc) (driver.Driver, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if err := f.NewErr; err != nil {
		f.NewErr = nil
		return nil, err
	}
	d := &MockDriver{}
	if f.Prepare != nil {
		f.Prepare(d)
	}
	f.drivers = append(f.drivers, d)
	f.consoles = append(f.consoles, onConsole)
	f.configs = append(f.configs, cfg)
	return d, nil
}

// Count reports how many drivers the factory produced.
func (f *MockDriverFactory) Count() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.drivers)
}

// Driver returns the i-th driver the factory produced, or nil.
func (f *MockDriverFactory) Driver(i int) *MockDriver {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if i < 0 || i >= len(f.drivers) {
		return nil
	}
	return f.drivers[i]
}

// Config returns the configuration the i-th driver was built with.
func (f *MockDriverFactory) Config(i int) driver.Config {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.configs[i]
}

// EmitConsole pushes an entry through the console hook registered for the
// i-th driver, as the real driver would on a console event.
func (f *MockDriverFactory) EmitConsole(i int, entry schemas.ConsoleEntry) {
	f.mutex.Lock()
	var fn driver.ConsoleFunc
	if i >= 0 && i < len(f.consoles) {
		fn = f.consoles[i]
	}
	f.mutex.Unlock()
	if fn != nil {
		fn(entry)
	}
}

// -- Repository Mock --

// MockRepository mocks the store.Repository interface.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Save(ctx context.Context, sc *schemas.Scenario) error {
	return m.Called(ctx, sc).Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id string) (*schemas.Scenario, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*schemas.Scenario), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]*schemas.Scenario, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*schemas.Scenario), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) Close() error {
	return m.Called().Error(0)
}
