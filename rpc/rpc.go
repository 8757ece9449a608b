package rpc

import (
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/drawguess/logger"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/state"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer listens on addr. Services are added with Register before Start.
func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      rpc.NewServer(),
	}, nil
}

func (s *Server) Register(service any) error {
	return s.rpc.Register(service)
}

// Addr is the bound address, useful when listening on port 0.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Start serves connections until Stop is called.
func (s *Server) Start() error {
	logger.Log.Infof("RPC server listening on %s", s.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return nil
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	logger.Log.Info("Stopping RPC server.")
	s.listener.Close()
}

// RoomService exposes read-only room snapshots for diagnostics and
// spectators. Methods follow the net/rpc signature rules.
type RoomService struct {
	rooms *room.Manager
}

func NewRoomService(rooms *room.Manager) *RoomService {
	return &RoomService{rooms: rooms}
}

type GetSnapshotArgs struct {
	RoomID string
}

type GetSnapshotReply struct {
	Snapshot room.Snapshot
}

func (rs *RoomService) GetSnapshot(args *GetSnapshotArgs, reply *GetSnapshotReply) error {
	r, ok := rs.rooms.GetRoom(args.RoomID)
	if !ok {
		return room.ErrRoomNotFound
	}
	reply.Snapshot = r.Snapshot()
	return nil
}

// ListRoomsArgs filters by status; the zero value lists every room.
type ListRoomsArgs struct {
	Status state.Status
}

type ListRoomsReply struct {
	Rooms []room.Snapshot
}

func (rs *RoomService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	for _, snap := range rs.rooms.Snapshots() {
		if args.Status == "" || snap.Status == args.Status {
			reply.Rooms = append(reply.Rooms, snap)
		}
	}
	return nil
}
