package iis

import "testing"

func TestVersionCapabilities(t *testing.T) {
	tests := []struct {
		name         string
		version      Version
		detected     bool
		supportsSNI  bool
		versionLabel string
	}{
		{"未检测到", Version{}, false, false, "0.0"},
		{"IIS 7.5", Version{Major: 7, Minor: 5}, true, false, "7.5"},
		{"IIS 8.0", Version{Major: 8}, true, true, "8.0"},
		{"IIS 10", Version{Major: 10}, true, true, "10.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.Detected(); got != tt.detected {
				t.Errorf("Detected() = %v, 期望 %v", got, tt.detected)
			}
			if got := tt.version.SupportsSNI(); got != tt.supportsSNI {
				t.Errorf("SupportsSNI() = %v, 期望 %v", got, tt.supportsSNI)
			}
			if got := tt.version.String(); got != tt.versionLabel {
				t.Errorf("String() = %q, 期望 %q", got, tt.versionLabel)
			}
		})
	}
}

func TestBindingInformation(t *testing.T) {
	tests := []struct {
		name    string
		binding BindingInfo
		want    string
	}{
		{"通配 IP", BindingInfo{IP: "*", Port: 443, Host: "www.example.com"}, "*:443:www.example.com"},
		{"空 IP 视为通配", BindingInfo{IP: "", Port: 443, Host: "www.example.com"}, "*:443:www.example.com"},
		{"专用 IP", BindingInfo{IP: "192.0.2.10", Port: 443, Host: "www.example.com"}, "192.0.2.10:443:www.example.com"},
		{"无主机头", BindingInfo{IP: "*", Port: 80, Host: ""}, "*:80:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.binding.BindingInformation(); got != tt.want {
				t.Errorf("BindingInformation() = %q, 期望 %q", got, tt.want)
			}
		})
	}
}

func TestParseBindingInformation(t *testing.T) {
	tests := []struct {
		name     string
		protocol string
		info     string
		want     BindingInfo
		ok       bool
	}{
		{
			name:     "普通绑定",
			protocol: "https",
			info:     "*:443:www.example.com",
			want:     BindingInfo{Protocol: "https", IP: "*", Port: 443, Host: "www.example.com"},
			ok:       true,
		},
		{
			name:     "协议归一为小写",
			protocol: "HTTP",
			info:     "*:80:",
			want:     BindingInfo{Protocol: "http", IP: "*", Port: 80, Host: ""},
			ok:       true,
		},
		{
			name:     "空 IP 归一为通配",
			protocol: "http",
			info:     ":80:shop.example.com",
			want:     BindingInfo{Protocol: "http", IP: "*", Port: 80, Host: "shop.example.com"},
			ok:       true,
		},
		{
			name:     "IPv6 地址按最后两个冒号切分",
			protocol: "https",
			info:     "[2001:db8::1]:443:www.example.com",
			want:     BindingInfo{Protocol: "https", IP: "[2001:db8::1]", Port: 443, Host: "www.example.com"},
			ok:       true,
		},
		{"缺少冒号", "http", "nonsense", BindingInfo{}, false},
		{"只有一个冒号", "http", "80:host", BindingInfo{}, false},
		{"端口非数字", "http", "*:abc:host", BindingInfo{}, false},
		{"端口为零", "http", "*:0:host", BindingInfo{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseBindingInformation(tt.protocol, tt.info)
			if ok != tt.ok {
				t.Fatalf("ok = %v, 期望 %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("解析结果 = %+v, 期望 %+v", got, tt.want)
			}
		})
	}
}

func TestHasWildcardIP(t *testing.T) {
	for _, ip := range []string{"", "*", "0.0.0.0"} {
		if !(BindingInfo{IP: ip}).HasWildcardIP() {
			t.Errorf("IP %q 应视为通配地址", ip)
		}
	}
	if (BindingInfo{IP: "192.0.2.10"}).HasWildcardIP() {
		t.Error("专用 IP 不应视为通配地址")
	}
}

func TestIsHTTPS(t *testing.T) {
	if !(BindingInfo{Protocol: "HTTPS"}).IsHTTPS() {
		t.Error("协议比较应大小写不敏感")
	}
	if (BindingInfo{Protocol: "http"}).IsHTTPS() {
		t.Error("http 不是 https")
	}
}
