package runtime

import (
	"fmt"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/errs"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/registry"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

// RegisterLogger mints a domain id, builds initial via build, and
// registers it under name as a Logger domain. The returned proxy's panic
// hook is wired to the registry entry before this call returns, so every
// PanicHook invocation is already attributed correctly.
func (rt *Runtime) RegisterLogger(name string, record loader.Record, build func(id sharedheap.DomainID) domains.Logger) (*domains.LoggerProxy, error) {
	id := rt.Coordinator.NextDomainID()
	p := domains.NewLoggerProxy(build(id), record, rt.ProxyConfig())
	entry, err := rt.Registry.Register(name, registry.ProxyHandle{Kind: registry.KindLogger, Logger: p})
	if err != nil {
		return nil, fmt.Errorf("runtime: register logger %q: %w", name, err)
	}
	p.PanicHook = rt.PanicCountHook(entry)
	return p, nil
}

// RegisterNullDevice is RegisterLogger's counterpart for NullDevice.
func (rt *Runtime) RegisterNullDevice(name string, record loader.Record, build func(id sharedheap.DomainID) domains.NullDevice) (*domains.NullDeviceProxy, error) {
	id := rt.Coordinator.NextDomainID()
	p := domains.NewNullDeviceProxy(build(id), record, rt.ProxyConfig())
	entry, err := rt.Registry.Register(name, registry.ProxyHandle{Kind: registry.KindNullDevice, NullDevice: p})
	if err != nil {
		return nil, fmt.Errorf("runtime: register nulldevice %q: %w", name, err)
	}
	p.PanicHook = rt.PanicCountHook(entry)
	return p, nil
}

// RegisterBlockDevice is RegisterLogger's counterpart for BlockDevice.
func (rt *Runtime) RegisterBlockDevice(name string, record loader.Record, build func(id sharedheap.DomainID) domains.BlockDevice) (*domains.BlockDeviceProxy, error) {
	id := rt.Coordinator.NextDomainID()
	p := domains.NewBlockDeviceProxy(build(id), record, rt.ProxyConfig())
	entry, err := rt.Registry.Register(name, registry.ProxyHandle{Kind: registry.KindBlockDevice, BlockDevice: p})
	if err != nil {
		return nil, fmt.Errorf("runtime: register blockdevice %q: %w", name, err)
	}
	p.PanicHook = rt.PanicCountHook(entry)
	return p, nil
}

// UpdateDomain is the public sys_update_domain entry point, forwarding to
// the Coordinator. Kept on Runtime so callers (CLI, tests) don't need to
// reach into rt.Coordinator directly.
func (rt *Runtime) UpdateDomain(oldName, newFile string, kind registry.Kind, build func(id sharedheap.DomainID) (any, error)) error {
	if kind != registry.KindLogger && kind != registry.KindNullDevice && kind != registry.KindBlockDevice {
		return fmt.Errorf("runtime: update domain: %w: unhandled kind %v", errs.ErrInvalidArgument, kind)
	}
	return rt.Coordinator.UpdateDomain(oldName, newFile, kind, build)
}
