package types

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: "member", want: RoleMember},
		{in: "user", want: RoleMember},
		{in: " Admin ", want: RoleAdmin},
		{in: "librarian", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUserDecodesRoleAndNaiveTimestamp(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{"id":3,"email":"a@b.c","role":"admin","is_active":true,"created_at":"2024-03-01T10:00:00.123456"}`), &u)
	require.NoError(t, err)

	assert.True(t, u.IsAdmin())
	require.NotNil(t, u.CreatedAt)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 123456000, time.UTC), u.CreatedAt.Time)
}

func TestUserRejectsUnknownRole(t *testing.T) {
	var u User
	err := json.Unmarshal([]byte(`{"id":3,"email":"a@b.c","role":"root"}`), &u)
	assert.Error(t, err)
}

func TestNewIssueEncodesReturnDateAsRFC3339(t *testing.T) {
	due := NewTime(time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC))
	body, err := json.Marshal(NewIssue{CopyID: 5, UserID: 3, ReturnDate: due})
	require.NoError(t, err)

	assert.JSONEq(t, `{"copy_id":5,"user_id":3,"return_date":"2025-01-08T12:00:00Z"}`, string(body))
}

func TestIssueIsOverdue(t *testing.T) {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	past := NewTime(now.Add(-time.Hour))
	future := NewTime(now.Add(time.Hour))

	assert.True(t, Issue{Status: IssueIssued, ReturnDate: &past}.IsOverdue(now))
	assert.False(t, Issue{Status: IssueIssued, ReturnDate: &future}.IsOverdue(now))
	assert.False(t, Issue{Status: IssueReturned, ReturnDate: &past}.IsOverdue(now))
	assert.True(t, Issue{Status: IssueOverdue}.IsOverdue(now))
	assert.False(t, Issue{Status: IssueIssued}.IsOverdue(now))
}

func TestRequestedAtFallsBackToCreatedAt(t *testing.T) {
	var r Request
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"created_at":"2024-05-05T08:00:00"}`), &r))
	require.NotNil(t, r.RequestedAt())
	assert.Equal(t, "May 5, 2024", r.RequestedAt().Date())

	assert.Equal(t, "N/A", Request{}.RequestedAt().Date())
}

func TestBookAuthorNames(t *testing.T) {
	b := Book{Authors: []Author{{Name: "Kernighan"}, {Name: "Donovan"}}}
	assert.Equal(t, "Kernighan, Donovan", b.AuthorNames())
	assert.Equal(t, "", Book{}.AuthorNames())
}
