package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/99designs/keyring"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/rets/internal/keychain"
	"github.com/pior/rets/internal/testutils"
	"github.com/pior/rets/metadata"
)

func TestMain(m *testing.M) {
	pterm.DisableStyling()
	os.Exit(m.Run())
}

type testApp struct {
	*app
	out   bytes.Buffer
	store *keychain.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Setenv(passwordEnv, "")
	ta := &testApp{store: keychain.New(keyring.NewArrayKeyring(nil))}
	ta.app = &app{
		out:          &ta.out,
		errOut:       &bytes.Buffer{},
		openKeychain: func() (*keychain.Store, error) { return ta.store, nil },
	}
	return ta
}

func (ta *testApp) run(args ...string) error {
	root := ta.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newDigestServer(t *testing.T) *testutils.Server {
	srv := testutils.NewServer(t)
	srv.Digest = true
	return srv
}

func serverArgs(srv *testutils.Server, args ...string) []string {
	return append([]string{"--login-url", srv.LoginURL(), "--username", srv.Username, "--password", srv.Password}, args...)
}

func TestResources(t *testing.T) {
	srv := newDigestServer(t)
	srv.HandleMetadata("METADATA-RESOURCE", "0", testutils.Response{
		Body: testutils.MetadataReply(testutils.ResourceTable("Property", "Agent")),
	})
	ta := newTestApp(t)

	require.NoError(t, ta.run(serverArgs(srv, "resources")...))

	out := ta.out.String()
	assert.Contains(t, out, "ResourceID")
	assert.Contains(t, out, "Property")
	assert.Contains(t, out, "Agent")
	assert.Equal(t, 1, srv.RequestCount(testutils.LogoutPath), "the command logs out")
}

func TestClasses_JSON(t *testing.T) {
	srv := newDigestServer(t)
	srv.HandleMetadata("METADATA-CLASS", "Property", testutils.Response{
		Body: testutils.MetadataReply(testutils.ClassTable("Property", "RES", "LND")),
	})
	ta := newTestApp(t)

	require.NoError(t, ta.run(serverArgs(srv, "--json", "classes", "Property")...))

	var all []metadata.Classes
	require.NoError(t, json.Unmarshal(ta.out.Bytes(), &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Property", all[0].Resource)
	assert.Equal(t, []string{"RES", "LND"}, all[0].Names())
}

func TestTables_All(t *testing.T) {
	srv := newDigestServer(t)
	srv.HandleMetadata("METADATA-RESOURCE", "0", testutils.Response{
		Body: testutils.MetadataReply(testutils.ResourceTable("Property")),
	})
	srv.HandleMetadata("METADATA-CLASS", "Property", testutils.Response{
		Body: testutils.MetadataReply(testutils.ClassTable("Property", "RES")),
	})
	srv.HandleMetadata("METADATA-TABLE", "Property:RES", testutils.Response{
		Body: testutils.MetadataReply(testutils.FieldTable("Property", "RES", "ListPrice", "City")),
	})
	ta := newTestApp(t)

	require.NoError(t, ta.run(serverArgs(srv, "tables")...))

	out := ta.out.String()
	assert.Contains(t, out, "Table Property:RES")
	assert.Contains(t, out, "ListPrice")
	assert.Contains(t, out, "City")
}

func TestLookupTypes(t *testing.T) {
	srv := newDigestServer(t)
	srv.HandleMetadata("METADATA-LOOKUP_TYPE", "Property:Status", testutils.Response{
		Body: testutils.MetadataReply(testutils.LookupTypeTable("Property", "Status", "Active", "Sold")),
	})
	ta := newTestApp(t)

	require.NoError(t, ta.run(serverArgs(srv, "lookup-types", "Property", "Status")...))
	assert.Contains(t, ta.out.String(), "Sold")

	err := ta.run(serverArgs(srv, "lookup-types", "Property")...)
	assert.ErrorContains(t, err, "either no argument or two")
}

func TestReplyCodeError(t *testing.T) {
	srv := newDigestServer(t)
	ta := newTestApp(t)

	err := ta.run(serverArgs(srv, "objects", "Property")...)
	assert.True(t, metadata.IsReplyCode(err, metadata.ReplyNoMetadataFound))
	assert.Equal(t, 1, srv.RequestCount(testutils.LogoutPath), "logout runs after a failed command")
}

func TestLogin(t *testing.T) {
	srv := newDigestServer(t)
	ta := newTestApp(t)

	require.NoError(t, ta.run(serverArgs(srv, "login")...))

	out := ta.out.String()
	assert.Contains(t, out, "GetMetadata")
	assert.Contains(t, out, "MemberName")
	assert.Contains(t, out, "Test Agent")
}

func TestLogin_WrongPassword(t *testing.T) {
	srv := newDigestServer(t)
	ta := newTestApp(t)

	err := ta.run("--login-url", srv.LoginURL(), "--username", "agent", "--password", "wrong", "login")
	require.Error(t, err)
	assert.Zero(t, srv.RequestCount(testutils.LogoutPath))
}

func TestRaw(t *testing.T) {
	srv := newDigestServer(t)
	body := testutils.MetadataReply(testutils.ClassTable("Property", "RES", "LND"))
	srv.HandleMetadata("METADATA-CLASS", "Property", testutils.Response{Body: body})

	ta := newTestApp(t)
	require.NoError(t, ta.run(serverArgs(srv, "raw", "class", "Property")...))
	assert.Equal(t, body, ta.out.String())

	ta = newTestApp(t)
	require.NoError(t, ta.run(serverArgs(srv, "raw", "METADATA-CLASS", "Property", "--digest")...))
	assert.Contains(t, ta.out.String(), "METADATA-CLASS\t2 rows\t")

	ta = newTestApp(t)
	require.NoError(t, ta.run(serverArgs(srv, "raw", "class", "Property", "--format", "standard-xml")...))
	requests := srv.Requests()
	assert.Equal(t, "STANDARD-XML", requests[len(requests)-2].Query.Get("Format"))
}

func TestPasswordFromKeychain(t *testing.T) {
	srv := newDigestServer(t)
	srv.HandleMetadata("METADATA-SYSTEM", "0", testutils.Response{
		Body: testutils.SystemReply("1.12.29", "2024-01-01T00:00:00", "TEST", "Test MLS"),
	})
	ta := newTestApp(t)
	require.NoError(t, ta.store.SetPassword(srv.LoginURL(), srv.Username, srv.Password))

	require.NoError(t, ta.run("--login-url", srv.LoginURL(), "--username", srv.Username, "system"))
	assert.Contains(t, ta.out.String(), "Test MLS")
}

func TestConfigFile(t *testing.T) {
	srv := testutils.NewServer(t)
	srv.HandleMetadata("METADATA-RESOURCE", "0", testutils.Response{
		Body: testutils.MetadataReply(testutils.ResourceTable("Media")),
	})
	t.Setenv("TEST_CLI_PASSWORD", srv.Password)

	path := filepath.Join(t.TempDir(), "rets.yaml")
	config := "server:\n" +
		"  loginURL: " + srv.LoginURL() + "\n" +
		"  username: agent\n" +
		"  password: ${TEST_CLI_PASSWORD}\n" +
		"  auth: basic\n"
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))

	ta := newTestApp(t)
	require.NoError(t, ta.run("--config", path, "--stats", "resources"))
	assert.Contains(t, ta.out.String(), "Media")
	assert.Contains(t, ta.errOut.(*bytes.Buffer).String(), "requests=3")
}

func TestMissingLoginURL(t *testing.T) {
	ta := newTestApp(t)
	err := ta.run("resources")
	assert.ErrorContains(t, err, "no login URL")
}

func TestCredentials(t *testing.T) {
	ta := newTestApp(t)
	const loginURL = "https://rets.example.com/rets/login"

	require.NoError(t, ta.run("--login-url", loginURL, "--username", "agent", "--password", "pw", "credentials", "set"))
	assert.Contains(t, ta.out.String(), "Password stored for agent")

	password, err := ta.store.Password(loginURL, "agent")
	require.NoError(t, err)
	assert.Equal(t, "pw", password)

	require.NoError(t, ta.run("--login-url", loginURL, "--username", "agent", "credentials", "delete"))
	_, err = ta.store.Password(loginURL, "agent")
	assert.ErrorIs(t, err, keychain.ErrNotFound)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		input string
		want  metadata.Type
	}{
		{"class", metadata.TypeClass},
		{"METADATA-TABLE", metadata.TypeTable},
		{"lookup_type", metadata.TypeLookupType},
		{"lookuptype", metadata.TypeLookupType},
		{"Object", metadata.TypeObject},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			typ, err := parseType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, typ)
		})
	}

	_, err := parseType("search")
	assert.Error(t, err)
}
