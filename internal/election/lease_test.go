package election_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/auras/internal/coordinator"
	"github.com/KirkDiggler/auras/internal/coordinator/mocks"
	"github.com/KirkDiggler/auras/internal/election"
	auraerr "github.com/KirkDiggler/auras/internal/errors"
)

const (
	key = "auras:coordinator"
	ttl = 9 * time.Second
)

type LeaseTestSuite struct {
	suite.Suite
	ctx       context.Context
	ctrl      *gomock.Controller
	mock      redismock.ClientMock
	directory *mocks.MockDirectory
	lease     *election.Lease
}

func TestLeaseTestSuite(t *testing.T) {
	suite.Run(t, new(LeaseTestSuite))
}

func (s *LeaseTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.directory = mocks.NewMockDirectory(s.ctrl)

	client, mock := redismock.NewClientMock()
	s.mock = mock
	s.lease = election.NewLease(&election.Config{
		Client:    client,
		ID:        "gm-laptop",
		Directory: s.directory,
		TTL:       ttl,
	})
}

func (s *LeaseTestSuite) TearDownTest() {
	s.ctrl.Finish()
	s.NoError(s.mock.ExpectationsWereMet())
}

func (s *LeaseTestSuite) TestCampaign_AcquiresFreeLease() {
	s.mock.ExpectSetNX(key, "gm-laptop", ttl).SetVal(true)

	held, err := s.lease.Campaign(s.ctx)
	s.Require().NoError(err)
	s.True(held)
}

func (s *LeaseTestSuite) TestCampaign_RenewsOwnLease() {
	s.mock.ExpectSetNX(key, "gm-laptop", ttl).SetVal(false)
	s.mock.Regexp().ExpectEval(`PEXPIRE`, []string{key}, "gm-laptop", ttl.Milliseconds()).SetVal(int64(1))

	held, err := s.lease.Campaign(s.ctx)
	s.Require().NoError(err)
	s.True(held)
}

func (s *LeaseTestSuite) TestCampaign_LosesToOtherHolder() {
	s.mock.ExpectSetNX(key, "gm-laptop", ttl).SetVal(false)
	s.mock.Regexp().ExpectEval(`PEXPIRE`, []string{key}, "gm-laptop", ttl.Milliseconds()).SetVal(int64(0))

	held, err := s.lease.Campaign(s.ctx)
	s.Require().NoError(err)
	s.False(held)
}

func (s *LeaseTestSuite) TestCampaign_RedisDown() {
	s.mock.ExpectSetNX(key, "gm-laptop", ttl).SetErr(errors.New("dial tcp: connection refused"))

	held, err := s.lease.Campaign(s.ctx)
	s.False(held)
	s.True(auraerr.IsUnavailable(err))
}

func (s *LeaseTestSuite) TestResign() {
	s.mock.Regexp().ExpectEval(`DEL`, []string{key}, "gm-laptop").SetVal(int64(1))

	s.NoError(s.lease.Resign(s.ctx))
}

func (s *LeaseTestSuite) TestActive_ResolvesHolder() {
	handle := mocks.NewMockHandle(s.ctrl)
	s.mock.ExpectGet(key).SetVal("player-desktop")
	s.directory.EXPECT().Handle("player-desktop").Return(handle, true)

	h, ok := s.lease.Active(s.ctx)
	s.Require().True(ok)
	s.Equal(coordinator.Handle(handle), h)
}

func (s *LeaseTestSuite) TestActive_NoHolder() {
	s.mock.ExpectGet(key).RedisNil()

	h, ok := s.lease.Active(s.ctx)
	s.False(ok)
	s.Nil(h)
}

func (s *LeaseTestSuite) TestActive_UnknownHolder() {
	s.mock.ExpectGet(key).SetVal("stranger")
	s.directory.EXPECT().Handle("stranger").Return(nil, false)

	_, ok := s.lease.Active(s.ctx)
	s.False(ok)
}

func (s *LeaseTestSuite) TestActive_RedisDown() {
	s.mock.ExpectGet(key).SetErr(errors.New("i/o timeout"))

	_, ok := s.lease.Active(s.ctx)
	s.False(ok)
}
