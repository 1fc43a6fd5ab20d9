package config

import "testing"

const sampleConfig = `
server {
	listen 127.0.0.1:8080;
	server_name example.com;
	root ./www;
	index index.html;
	client_max_body_size 1M;

	location / {
		methods GET;
	}

	location /cgi {
		cgi_pass /usr/bin/python3;
	}

	location /r {
		return 301 /new;
	}
}
`

func TestParseRoundTripsThroughMaterialize(t *testing.T) {
	tree, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	servers, err := Materialize(tree)
	if err != nil {
		t.Fatalf("materialize error: %v", err)
	}

	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1", len(servers))
	}

	sc := servers[0]
	if sc.Listen != "127.0.0.1:8080" || sc.Host != "127.0.0.1" || sc.Port != 8080 {
		t.Fatalf("bad listen parse: %+v", sc)
	}
	if len(sc.Locations) != 3 {
		t.Fatalf("got %d locations, want 3", len(sc.Locations))
	}
	// "/cgi" and "/r" are longer than "/", so they sort ahead of it.
	if sc.Locations[len(sc.Locations)-1].Route != "/" {
		t.Fatalf("expected \"/\" to sort last (shortest prefix), got order %v", routeNames(sc.Locations))
	}
}

func routeNames(locs []*LocationConfig) []string {
	out := make([]string, len(locs))
	for i, l := range locs {
		out[i] = l.Route
	}
	return out
}

func TestParseUnmatchedBraceFails(t *testing.T) {
	_, err := Parse([]byte("server { listen 1.2.3.4:80;"))
	if err == nil {
		t.Fatal("expected an error for a missing closing brace")
	}
}

func TestParseUnexpectedClosingBraceFails(t *testing.T) {
	_, err := Parse([]byte("server { listen 1.2.3.4:80; } }"))
	if err == nil {
		t.Fatal("expected an error for a stray \"}\"")
	}
}

func TestParseOnlyServerAtTopLevel(t *testing.T) {
	_, err := Parse([]byte("root /var/www;"))
	if err == nil {
		t.Fatal("expected non-server directives to be rejected at top level")
	}
}

func TestLocationInheritsServerDefaults(t *testing.T) {
	tree, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	servers, err := Materialize(tree)
	if err != nil {
		t.Fatalf("materialize error: %v", err)
	}

	for _, l := range servers[0].Locations {
		if l.Route == "/" {
			if l.Root != "./www" {
				t.Fatalf("expected location / to inherit root, got %q", l.Root)
			}
		}
	}
}
