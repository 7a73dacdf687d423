package services

import (
	"chatrooms/domain"
	"chatrooms/infrastructure/storage"
	"iter"
	"log/slog"
)

type RoomService struct {
	log  *slog.Logger
	repo storage.IRoomRepository
}

func NewRoomService(log *slog.Logger, repo storage.IRoomRepository) *RoomService {
	return &RoomService{log: log, repo: repo}
}

func (s *RoomService) CreateRoom(cmd domain.CreateRoomCommand) (domain.Room, error) {
	if err := validateCommand(cmd); err != nil {
		return domain.Room{}, err
	}
	room, err := domain.NewRoom(cmd.Name, cmd.Region, cmd.Province, cmd.Description, cmd.CreatorID)
	if err != nil {
		return domain.Room{}, err
	}
	created, err := s.repo.Create(room)
	if err != nil {
		return domain.Room{}, err
	}
	s.log.Info("room created", "room", created.ID, "region", created.Region, "province", created.Province)
	return created, nil
}

func (s *RoomService) GetRoom(id domain.RoomID) (domain.Room, error) {
	return s.repo.Get(id)
}

// ListRooms yields rooms newest first. The sequence reads storage lazily and
// can be ranged over again for a fresh listing.
func (s *RoomService) ListRooms(filter domain.RoomFilter) iter.Seq2[domain.Room, error] {
	return s.repo.List(filter)
}

func (s *RoomService) RenameRoom(cmd domain.RenameRoomCommand) (domain.Room, error) {
	if err := validateCommand(cmd); err != nil {
		return domain.Room{}, err
	}
	room, err := s.repo.Get(cmd.Room)
	if err != nil {
		return domain.Room{}, err
	}
	renamed, err := room.Rename(cmd.CallerID, cmd.Name)
	if err != nil {
		return domain.Room{}, err
	}
	if err = s.repo.Update(renamed); err != nil {
		return domain.Room{}, err
	}
	return renamed, nil
}
