// SPDX-License-Identifier: MPL-2.0

package distro

// builtins is seeded into every Registry before custom entries are applied.
func builtins() map[string]Info {
	return map[string]Info{
		"ubuntu-22.04": {
			Name:           "ubuntu",
			Version:        "22.04",
			RootfsURL:      "https://cloud-images.ubuntu.com/wsl/jammy/current/ubuntu-jammy-wsl-amd64-ubuntu22.04lts.rootfs.tar.gz",
			PackageManager: PackageManagerApt,
			Source:         SourceVendor,
			Description:    "Ubuntu 22.04 LTS (Jammy Jellyfish)",
		},
		"ubuntu-24.04": {
			Name:           "ubuntu",
			Version:        "24.04",
			RootfsURL:      "https://cloud-images.ubuntu.com/wsl/noble/current/ubuntu-noble-wsl-amd64-ubuntu24.04lts.rootfs.tar.gz",
			PackageManager: PackageManagerApt,
			Source:         SourceVendor,
			Description:    "Ubuntu 24.04 LTS (Noble Numbat)",
		},
		"ubuntu-20.04": {
			Name:           "ubuntu",
			Version:        "20.04",
			RootfsURL:      "https://cloud-images.ubuntu.com/wsl/focal/current/ubuntu-focal-wsl-amd64-ubuntu20.04lts.rootfs.tar.gz",
			PackageManager: PackageManagerApt,
			Source:         SourceVendor,
			Description:    "Ubuntu 20.04 LTS (Focal Fossa)",
		},
		"alpine-3.19": {
			Name:           "alpine",
			Version:        "3.19",
			RootfsURL:      "https://dl-cdn.alpinelinux.org/alpine/v3.19/releases/x86_64/alpine-minirootfs-3.19.0-x86_64.tar.gz",
			PackageManager: PackageManagerApk,
			Source:         SourceVendor,
			Description:    "Alpine Linux 3.19",
		},
		"alpine-3.18": {
			Name:           "alpine",
			Version:        "3.18",
			RootfsURL:      "https://dl-cdn.alpinelinux.org/alpine/v3.18/releases/x86_64/alpine-minirootfs-3.18.5-x86_64.tar.gz",
			PackageManager: PackageManagerApk,
			Source:         SourceVendor,
			Description:    "Alpine Linux 3.18",
		},
		"alpine-edge": {
			Name:           "alpine",
			Version:        "edge",
			RootfsURL:      "https://dl-cdn.alpinelinux.org/alpine/edge/releases/x86_64/alpine-minirootfs-edge-x86_64.tar.gz",
			PackageManager: PackageManagerApk,
			Source:         SourceVendor,
			Description:    "Alpine Linux edge (rolling)",
		},
		"debian-12": {
			Name:           "debian",
			Version:        "12",
			RootfsURL:      "https://github.com/debuerreotype/docker-debian-artifacts/raw/dist-amd64/bookworm/rootfs.tar.xz",
			PackageManager: PackageManagerApt,
			Source:         SourceVendor,
			Description:    "Debian 12 (Bookworm)",
		},
		"debian-11": {
			Name:           "debian",
			Version:        "11",
			RootfsURL:      "https://github.com/debuerreotype/docker-debian-artifacts/raw/dist-amd64/bullseye/rootfs.tar.xz",
			PackageManager: PackageManagerApt,
			Source:         SourceVendor,
			Description:    "Debian 11 (Bullseye)",
		},
		"kali": {
			Name:             "kali",
			Version:          "rolling",
			PackageManager:   PackageManagerApt,
			Source:           SourceManagedStore,
			StoreInstallName: "kali-linux",
			Description:      "Kali Linux rolling",
		},
		"oracle-9": {
			Name:             "oracle",
			Version:          "9.5",
			PackageManager:   PackageManagerDnf,
			Source:           SourceManagedStore,
			StoreInstallName: "OracleLinux_9_5",
			Description:      "Oracle Linux 9.5",
		},
		"oracle-8": {
			Name:             "oracle",
			Version:          "8.10",
			PackageManager:   PackageManagerDnf,
			Source:           SourceManagedStore,
			StoreInstallName: "OracleLinux_8_10",
			Description:      "Oracle Linux 8.10",
		},
		"opensuse-leap": {
			Name:             "opensuse",
			Version:          "15.6",
			PackageManager:   PackageManagerZypper,
			Source:           SourceManagedStore,
			StoreInstallName: "openSUSE-Leap-15.6",
			Description:      "openSUSE Leap 15.6",
		},
		"opensuse-tumbleweed": {
			Name:             "opensuse",
			Version:          "tumbleweed",
			PackageManager:   PackageManagerZypper,
			Source:           SourceManagedStore,
			StoreInstallName: "openSUSE-Tumbleweed",
			Description:      "openSUSE Tumbleweed (rolling)",
		},
	}
}
