package urlcheck

import "testing"

func TestCheckPublicThumbnail(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{
			name: "valid public https url",
			url:  "https://storage.recipereel.app/v1/object/public/thumbnails/abc.jpg",
		},
		{
			name:    "empty url",
			url:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			url:     "   ",
			wantErr: true,
		},
		{
			name:    "http scheme",
			url:     "http://storage.recipereel.app/public/thumbnails/abc.jpg",
			wantErr: true,
		},
		{
			name:    "ftp scheme",
			url:     "ftp://storage.recipereel.app/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "localhost host",
			url:     "https://localhost/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "loopback ipv4",
			url:     "https://127.0.0.1/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "loopback ipv4 range",
			url:     "https://127.0.0.53/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "unspecified host",
			url:     "https://0.0.0.0/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "loopback ipv6",
			url:     "https://[::1]/public/abc.jpg",
			wantErr: true,
		},
		{
			name:    "missing public path marker",
			url:     "https://storage.recipereel.app/v1/object/private/thumbnails/abc.jpg",
			wantErr: true,
		},
		{
			name:    "marker in query not path",
			url:     "https://storage.recipereel.app/v1/object/x.jpg?path=/public/",
			wantErr: true,
		},
		{
			name:    "scheme-relative url",
			url:     "//storage.recipereel.app/public/abc.jpg",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPublicThumbnail(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckPublicThumbnail(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
