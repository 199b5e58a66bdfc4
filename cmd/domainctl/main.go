// Command domainctl is a kong-based CLI front end for the domain runtime:
// it bootstraps a reference runtime, registers one reference domain of
// each kind, and exposes update-domain as a subcommand — an ordinary
// userspace substitute for a syscall-style control entry point.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	logv3 "github.com/ledgerwatch/log/v3"

	"github.com/numpy1314/domain-runtime/core/domains"
	"github.com/numpy1314/domain-runtime/core/loader"
	"github.com/numpy1314/domain-runtime/core/registry"
	"github.com/numpy1314/domain-runtime/core/runtime"
	"github.com/numpy1314/domain-runtime/core/sharedheap"
)

type context struct {
	rt  *runtime.Runtime
	log logv3.Logger
}

// UpdateDomainCmd implements `domainctl update-domain`: replace a
// registered domain's implementation with one loaded from a new file.
type UpdateDomainCmd struct {
	Old  string `help:"Name of the already-registered domain to replace." required:""`
	New  string `help:"Path to the new domain image." required:"" type:"path"`
	Kind string `help:"Domain kind: logger, nulldevice, or blockdevice." required:""`
}

func (cmd *UpdateDomainCmd) Run(ctx *context) error {
	kind, err := registry.ParseKind(cmd.Kind)
	if err != nil {
		return err
	}

	build := func(id sharedheap.DomainID) (any, error) {
		switch kind {
		case registry.KindLogger:
			return domains.NewLoggerImpl(id, ctx.log), nil
		case registry.KindNullDevice:
			return domains.NewNullDeviceEcho(id), nil
		case registry.KindBlockDevice:
			return domains.NewBlockDeviceRAMDisk(ctx.rt.Heap, ctx.rt.Types, id, 16), nil
		default:
			return nil, fmt.Errorf("domainctl: unhandled kind %v", kind)
		}
	}

	if err := ctx.rt.UpdateDomain(cmd.Old, cmd.New, kind, build); err != nil {
		return err
	}
	ctx.log.Info("domain updated", "name", cmd.Old, "kind", kind.String(), "image", cmd.New)
	return nil
}

// ListCmd implements `domainctl list`: print every registered domain name
// and its live domain id.
type ListCmd struct{}

func (cmd *ListCmd) Run(ctx *context) error {
	for _, name := range ctx.rt.Registry.Names() {
		entry, _ := ctx.rt.Registry.Lookup(name)
		fmt.Printf("%s\tkind=%s\tdomainID=%d\tpanics=%d\n",
			name, entry.Proxy.Kind, entry.Proxy.DomainID(), entry.PanicCount())
	}
	return nil
}

var cli struct {
	UpdateDomain UpdateDomainCmd `cmd:"" name:"update-domain" help:"Replace a registered domain's implementation."`
	List         ListCmd         `cmd:"" help:"List registered domains."`
}

func main() {
	log := logv3.Root()
	rt := runtime.NewWithLoader(loader.FileLoader{}, log)

	// Seed one reference domain per kind so update-domain has something to
	// target out of the box.
	if _, err := rt.RegisterLogger("log0", loader.Record{}, func(id sharedheap.DomainID) domains.Logger {
		return domains.NewLoggerImpl(id, log)
	}); err != nil {
		log.Error("seed logger", "err", err)
		os.Exit(1)
	}
	if _, err := rt.RegisterNullDevice("null0", loader.Record{}, func(id sharedheap.DomainID) domains.NullDevice {
		return domains.NewNullDeviceEcho(id)
	}); err != nil {
		log.Error("seed nulldevice", "err", err)
		os.Exit(1)
	}
	if _, err := rt.RegisterBlockDevice("blk0", loader.Record{}, func(id sharedheap.DomainID) domains.BlockDevice {
		return domains.NewBlockDeviceRAMDisk(rt.Heap, rt.Types, id, 16)
	}); err != nil {
		log.Error("seed blockdevice", "err", err)
		os.Exit(1)
	}

	kctx := kong.Parse(&cli, kong.Name("domainctl"),
		kong.Description("Inspect and hot-upgrade registered isolation domains."))
	err := kctx.Run(&context{rt: rt, log: log})
	kctx.FatalIfErrorf(err)
}
