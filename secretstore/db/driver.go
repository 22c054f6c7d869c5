package db

import (
	"sort"
	"sync"
)

// DBDriver describes a backend that can be registered with RegisterDriver.
type DBDriver struct {
	Type     string
	OpenDB   func(args ...interface{}) (DB, error)
	CreateDB func(args ...interface{}) (DB, error)
}

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]*DBDriver)
)

// RegisterDriver makes a backend available by its Type. Drivers register
// themselves from an init function.
func RegisterDriver(driver DBDriver) error {
	driversMu.Lock()
	defer driversMu.Unlock()

	if _, exists := drivers[driver.Type]; exists {
		return ErrDbTypeRegistered
	}
	drivers[driver.Type] = &driver
	return nil
}

// RegisteredDbTypes returns the registered backend types, sorted.
func RegisteredDbTypes() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	types := make([]string, 0, len(drivers))
	for t := range drivers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func driverFor(dbType string) (*DBDriver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()

	driver, ok := drivers[dbType]
	if !ok {
		return nil, ErrDbUnknownType
	}
	return driver, nil
}

// CreateDB creates a new database of dbType. The args are driver specific,
// the sqlite driver takes the database file path.
func CreateDB(dbType string, args ...interface{}) (DB, error) {
	driver, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	return driver.CreateDB(args...)
}

// OpenDB opens an existing database of dbType.
func OpenDB(dbType string, args ...interface{}) (DB, error) {
	driver, err := driverFor(dbType)
	if err != nil {
		return nil, err
	}
	return driver.OpenDB(args...)
}
