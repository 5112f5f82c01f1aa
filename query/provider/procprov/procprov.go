// Copyright 2019 eBay Inc.
// Primary authors: Simon Fell, Diego Ongaro,
//                  Raymond Kroeker, and Sathish Kandasamy.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package procprov has specialized strategies for process and module
// enumeration, answered from a local /proc filesystem instead of the
// management source.
package procprov

import (
	"context"
	"errors"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ebay/wbemql/objpath"
	"github.com/ebay/wbemql/query/cache"
	"github.com/ebay/wbemql/query/provider"
	"github.com/ebay/wbemql/query/value"
	"github.com/ebay/wbemql/source"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/procfs"
)

// Class names served by this package.
const (
	ProcessClass           = "CIM_Process"
	ProcessExecutableClass = "CIM_ProcessExecutable"
	DataFileClass          = "CIM_DataFile"
)

// Properties of ProcessClass.
const (
	CommandLine     = "CommandLine"
	ExecutablePath  = "ExecutablePath"
	Handle          = "Handle"
	Name            = "Name"
	ParentProcessID = "ParentProcessId"
)

// Properties of ProcessExecutableClass.
const (
	Antecedent = "Antecedent"
	Dependent  = "Dependent"
)

// ProcessColumns lists every property of ProcessClass that's available.
var ProcessColumns = []string{CommandLine, ExecutablePath, Handle, Name, ParentProcessID}

// Procs reads processes from a proc filesystem.
type Procs struct {
	fs procfs.FS
}

// New returns Procs for the proc filesystem mounted at mountPoint.
func New(mountPoint string) (*Procs, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "procprov: opening %s", mountPoint)
	}
	return &Procs{fs: fs}, nil
}

// Providers returns the select strategies, in the order they should be
// registered.
func (p *Procs) Providers() []provider.Provider {
	return []provider.Provider{
		&processByHandle{SelectSignature: provider.SelectSignature{Class: ProcessClass, Wheres: []string{Handle}}, procs: p},
		&allProcesses{SelectSignature: provider.SelectSignature{Class: ProcessClass}, procs: p},
		&executablesByProcess{SelectSignature: provider.SelectSignature{Class: ProcessExecutableClass, Wheres: []string{Dependent}}, procs: p},
	}
}

// Getters returns the point lookup strategies, in the order they should be
// registered.
func (p *Procs) Getters() []provider.Getter {
	return []provider.Getter{
		&processGetter{GetSignature: provider.GetSignature{Class: ProcessClass, Columns: ProcessColumns}, procs: p},
	}
}

// ProcessPath returns the object path of the process with the given pid.
func ProcessPath(namespace string, pid int) string {
	return objpath.Build(namespace, ProcessClass, []objpath.Key{{Name: Handle, Value: strconv.Itoa(pid)}})
}

// DataFilePath returns the object path of a file.
func DataFilePath(namespace, filename string) string {
	return objpath.Build(namespace, DataFileClass, []objpath.Key{{Name: Name, Value: filename}})
}

// processRow returns every property of the process. Properties that can't be
// read, usually for lack of permission, are left absent. It returns
// source.ErrNotFound if the process doesn't exist.
func (p *Procs) processRow(namespace string, pid int) (value.Row, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return nil, notFound(err)
	}
	stat, err := proc.Stat()
	if err != nil {
		return nil, notFound(err)
	}
	row := make(value.Row, len(ProcessColumns)+1)
	row[Handle] = value.NewString(strconv.Itoa(pid))
	row[Name] = value.NewString(stat.Comm)
	row[ParentProcessID] = value.NewInt(int64(stat.PPID))
	row[ExecutablePath] = value.Pair{}
	if exe, err := proc.Executable(); err == nil && exe != "" {
		row[ExecutablePath] = value.NewString(exe)
	}
	row[CommandLine] = value.Pair{}
	if args, err := proc.CmdLine(); err == nil && len(args) > 0 {
		row[CommandLine] = value.NewString(strings.Join(args, " "))
	}
	row[source.PathColumn] = value.NewNode(ProcessPath(namespace, pid))
	return row, nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return pkgerrors.Wrap(source.ErrNotFound, err.Error())
	}
	return err
}

func hasProcessColumn(name string) bool {
	for _, c := range ProcessColumns {
		if c == name {
			return true
		}
	}
	return false
}

// soleValue returns the value every equality in where requires. Equalities
// that disagree match nothing.
func soleValue(where []source.Equality) (string, bool) {
	if len(where) == 0 {
		return "", false
	}
	for _, w := range where[1:] {
		if w.Value.Val != where[0].Value.Val {
			return "", false
		}
	}
	return where[0].Value.Val, true
}

// processByHandle answers CIM_Process selects constrained by Handle.
type processByHandle struct {
	provider.SelectSignature
	procs *Procs
}

func (*processByHandle) Name() string {
	return "procprov.processByHandle"
}

func (s *processByHandle) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	handle, ok := soleValue(req.Where)
	if !ok {
		return nil, nil
	}
	pid, err := strconv.Atoi(handle)
	if err != nil || pid < 0 {
		return nil, nil
	}
	row, err := s.procs.processRow(req.Namespace, pid)
	if errors.Is(err, source.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row, err = source.Project(row, req.Columns, req.AllColumns, hasProcessColumn)
	if err != nil {
		return nil, err
	}
	return []value.Row{row}, nil
}

// allProcesses answers unconstrained CIM_Process selects.
type allProcesses struct {
	provider.SelectSignature
	procs *Procs
}

func (*allProcesses) Name() string {
	return "procprov.allProcesses"
}

func (s *allProcesses) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	all, err := s.procs.fs.AllProcs()
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].PID < all[j].PID
	})
	rows := make([]value.Row, 0, len(all))
	for _, proc := range all {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.procs.processRow(req.Namespace, proc.PID)
		if errors.Is(err, source.ErrNotFound) {
			// exited since the listing
			continue
		}
		if err != nil {
			return nil, err
		}
		row, err = source.Project(row, req.Columns, req.AllColumns, hasProcessColumn)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// executablesByProcess answers CIM_ProcessExecutable selects constrained by
// Dependent: the files mapped into one process.
type executablesByProcess struct {
	provider.SelectSignature
	procs *Procs
}

func (*executablesByProcess) Name() string {
	return "procprov.executablesByProcess"
}

func (s *executablesByProcess) Select(ctx context.Context, req *source.SelectRequest) ([]value.Row, error) {
	dependent, ok := soleValue(req.Where)
	if !ok {
		return nil, nil
	}
	path, err := objpath.Parse(dependent)
	if err != nil || !strings.EqualFold(path.Class, ProcessClass) {
		return nil, nil
	}
	handle, _ := path.Get(Handle)
	pid, err := strconv.Atoi(handle)
	if err != nil {
		return nil, nil
	}
	proc, err := s.procs.fs.Proc(pid)
	if err != nil {
		return nil, ignoreNotExist(err)
	}
	maps, err := proc.ProcMaps()
	if err != nil {
		return nil, ignoreNotExist(err)
	}
	seen := make(map[string]bool)
	var files []string
	for _, m := range maps {
		if strings.HasPrefix(m.Pathname, "/") && !seen[m.Pathname] {
			seen[m.Pathname] = true
			files = append(files, m.Pathname)
		}
	}
	sort.Strings(files)
	has := func(c string) bool { return c == Antecedent || c == Dependent }
	rows := make([]value.Row, 0, len(files))
	for _, f := range files {
		antecedent := DataFilePath(path.Namespace, f)
		assoc := objpath.Build(req.Namespace, ProcessExecutableClass, []objpath.Key{
			{Name: Antecedent, Value: antecedent},
			{Name: Dependent, Value: dependent},
		})
		full := value.Row{
			Antecedent:        value.NewNode(antecedent),
			Dependent:         value.NewNode(dependent),
			source.PathColumn: value.NewNode(assoc),
		}
		row, err := source.Project(full, req.Columns, req.AllColumns, has)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// processGetter fetches CIM_Process objects by path, remembering full rows in
// the evaluation's cache.
type processGetter struct {
	provider.GetSignature
	procs *Procs
}

func (*processGetter) Name() string {
	return "procprov.processGetter"
}

func (g *processGetter) Get(ctx context.Context, req *source.GetRequest, rc cache.RowCache) (value.Row, error) {
	if rc.IsMissing(req.Path) {
		return nil, source.ErrNotFound
	}
	row, cached := rc.Row(req.Path)
	if !cached {
		path, err := objpath.Parse(req.Path)
		if err != nil {
			return nil, err
		}
		handle, _ := path.Get(Handle)
		pid, err := strconv.Atoi(handle)
		if err != nil || !strings.EqualFold(path.Class, ProcessClass) || len(path.Keys) != 1 {
			rc.AddMissing(req.Path)
			return nil, pkgerrors.Wrapf(source.ErrNotFound, "procprov: %s", req.Path)
		}
		row, err = g.procs.processRow(path.Namespace, pid)
		if errors.Is(err, source.ErrNotFound) {
			rc.AddMissing(req.Path)
			return nil, err
		}
		if err != nil {
			return nil, err
		}
		rc.AddRow(req.Path, row)
	}
	return source.Project(row, req.Columns, req.AllColumns, hasProcessColumn)
}
