package auth

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"clinic-scheduler/internal/configs"
	"clinic-scheduler/internal/mock"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const plainTestPassword = "testing"

// hashedTestPassword is generated once so every table entry shares the same hash.
var hashedTestPassword = func() string {
	hash, err := EncryptPassword(plainTestPassword)
	if err != nil {
		panic(err)
	}
	return hash
}()

type emptyWriter struct{}

func (e emptyWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

var logger = log.New(&emptyWriter{}, "", log.LstdFlags)

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*User, error)
	mockRefreshTokens        func(ctx context.Context, tokens Tokens) (*Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (User, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens Tokens) (*Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func withFindUserByEmailResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByEmailError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByEmailQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withFindUserByUUIDResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByUUIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindUserByUUIDError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findUserByUUIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func userWithPasswordRows(userUUID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "uuid", "email", "password", "role"}).
		AddRow(1, userUUID.String(), "patient@clinic.com", hashedTestPassword, PatientRole)
}

func userRows(userUUID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "uuid", "email", "role"}).
		AddRow(1, userUUID.String(), "patient@clinic.com", PatientRole)
}

func TestAuthenticate(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	userUUID := uuid.New()
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		credentials   Credentials
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should authenticate the user",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(userWithPasswordRows(userUUID)),
				},
				credentials: Credentials{Email: "patient@clinic.com", Password: plainTestPassword},
			},
			want: http.StatusOK,
		},
		{
			name: "should not authenticate the user due to a wrong password",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(userWithPasswordRows(userUUID)),
				},
				credentials: Credentials{Email: "patient@clinic.com", Password: "wrong"},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user because no user with given email was found",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailResult(sqlmock.NewRows([]string{"id", "uuid", "email", "password", "role"})),
				},
				credentials: Credentials{Email: "nobody@clinic.com", Password: plainTestPassword},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not authenticate the user because the email is missing",
			args: args{
				dbConn:      mock.MustCreateConnectionMock(),
				credentials: Credentials{Password: plainTestPassword},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not authenticate the user due to a database error",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByEmailError(),
				},
				credentials: Credentials{Email: "patient@clinic.com", Password: plainTestPassword},
			},
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			body := new(bytes.Buffer)
			_ = json.NewEncoder(body).Encode(tt.args.credentials)

			req, _ := http.NewRequest("POST", "/api/v1/auth/login", body)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestRefreshToken(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	userUUID := uuid.New()
	user := User{ID: 1, UUID: userUUID, Email: "patient@clinic.com", Role: PatientRole}
	tokens := MustGenerateTokens(context.TODO(), config.PrivateKey(), user)
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		tokens        Tokens
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should refresh the tokens",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(userRows(userUUID)),
				},
				tokens: Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, GrantType: "refresh_token"},
			},
			want: http.StatusOK,
		},
		{
			name: "should not refresh the tokens due to a wrong grant type",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				tokens: Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, GrantType: "password"},
			},
			want: http.StatusBadRequest,
		},
		{
			name: "should not refresh the tokens because the refresh token is not parseable",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				tokens: Tokens{AccessToken: tokens.AccessToken, RefreshToken: "garbage", GrantType: "refresh_token"},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not refresh the tokens because no user with the token subject was found",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(sqlmock.NewRows([]string{"id", "uuid", "email", "role"})),
				},
				tokens: Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, GrantType: "refresh_token"},
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not refresh the tokens due to a database error",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDError(),
				},
				tokens: Tokens{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, GrantType: "refresh_token"},
			},
			want: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			body := new(bytes.Buffer)
			_ = json.NewEncoder(body).Encode(tt.args.tokens)

			req, _ := http.NewRequest("PUT", "/api/v1/auth/token", body)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestGetAuthenticatedUser(t *testing.T) {
	config := configs.MustLoad("./../../test/testdata/config_valid.json")
	userUUID := uuid.New()
	user := User{ID: 1, UUID: userUUID, Email: "patient@clinic.com", Role: PatientRole}
	tokens := MustGenerateTokens(context.TODO(), config.PrivateKey(), user)
	type args struct {
		dbConn        mock.Connection
		dbMockOptions []mock.DBResultOption
		authHeader    string
	}
	tests := []struct {
		name string
		args args
		want int
	}{
		{
			name: "should return the authenticated user",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(userRows(userUUID)),
				},
				authHeader: fmt.Sprintf("Bearer %s", tokens.AccessToken),
			},
			want: http.StatusOK,
		},
		{
			name: "should not return the user because the header is missing",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not return the user because the token is not valid",
			args: args{
				dbConn:     mock.MustCreateConnectionMock(),
				authHeader: "Bearer garbage",
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "should not return the user because no user with the token subject was found",
			args: args{
				dbConn: mock.MustCreateConnectionMock(),
				dbMockOptions: []mock.DBResultOption{
					withFindUserByUUIDResult(sqlmock.NewRows([]string{"id", "uuid", "email", "role"})),
				},
				authHeader: fmt.Sprintf("Bearer %s", tokens.AccessToken),
			},
			want: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := chi.NewRouter()
			Setup(router, logger, config, tt.args.dbConn)

			mock.MockDBResults(tt.args.dbConn, tt.args.dbMockOptions...)

			req, _ := http.NewRequest("GET", "/api/v1/auth/me", nil)
			req.Header.Add("Authorization", tt.args.authHeader)

			recorder := httptest.NewRecorder()
			router.ServeHTTP(recorder, req)
			response := recorder.Result()

			if response.StatusCode != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}
