package ipc

import (
	"encoding/json"
	"net"
	"os"
	"sync"

	"github.com/branchfs/branchfs/internal/branchfs"
)

// Server answers Requests against a single *branchfs.Mount over a Unix
// domain socket, one JSON object per line in each direction.
type Server struct {
	mount    *branchfs.Mount
	listener net.Listener
	shutdown chan struct{}
	once     sync.Once
}

// Listen creates (replacing any stale socket file) the daemon.sock at
// sockPath and returns a Server bound to mount.
func Listen(sockPath string, mount *branchfs.Mount) (*Server, error) {
	_ = os.Remove(sockPath) // stale socket from a prior crashed daemon
	l, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}
	return &Server{mount: mount, listener: l, shutdown: make(chan struct{})}, nil
}

// Shutdown reports when an "unmount" request has asked this daemon to exit.
// cmd_mount.go selects on it alongside the process's own signal context.
func (s *Server) Shutdown() <-chan struct{} {
	return s.shutdown
}

// Serve accepts connections until the listener is closed, handling each
// connection's requests sequentially — admin operations are already
// serialized per mount by branchfs.Mount's own adminMu, so no additional
// locking is needed here.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	return s.listener.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			return
		}
		enc.Encode(s.dispatch(req))
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case "create":
		_, err := s.mount.CreateBranch(req.Name, req.Parent, req.Switch)
		return fromErr(err)
	case "commit":
		return fromErr(s.mount.CommitBranch(req.Name))
	case "abort":
		return fromErr(s.mount.AbortBranch(req.Name))
	case "switch":
		return fromErr(s.mount.Switch(req.Name))
	case "list":
		resp := Response{OK: true, View: s.mount.View(), Epoch: s.mount.Epoch()}
		for _, info := range s.mount.ListBranches() {
			resp.Tree = append(resp.Tree, BranchStatus{Name: info.Name, Parent: info.Parent})
		}
		return resp
	case "unmount":
		s.once.Do(func() { close(s.shutdown) })
		return Response{OK: true}
	default:
		return Response{OK: false, Error: string(branchfs.KindProtocol)}
	}
}

func fromErr(err error) Response {
	if err == nil {
		return Response{OK: true}
	}
	kind, ok := branchfs.AsKind(err)
	if !ok {
		kind = branchfs.KindIO
	}
	return Response{OK: false, Error: string(kind)}
}
