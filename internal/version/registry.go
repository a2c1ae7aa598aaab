package version

const archiveBase = "https://storage.googleapis.com/tensorflow/libtensorflow/libtensorflow_jni-"

func linuxCPU(v string) Variant {
	return CPU(Linux64, v, archiveBase+"cpu-linux-x86_64-"+v+".tar.gz")
}

func linuxGPU(v, cuda, cudnn string) Variant {
	return GPUBuild(Linux64, v, cuda, cudnn, archiveBase+"gpu-linux-x86_64-"+v+".tar.gz")
}

func winCPU(v string) Variant {
	return CPU(Win64, v, archiveBase+"cpu-windows-x86_64-"+v+".zip")
}

func winGPU(v, cuda, cudnn string) Variant {
	return GPUBuild(Win64, v, cuda, cudnn, archiveBase+"gpu-windows-x86_64-"+v+".zip")
}

func macCPU(v string) Variant {
	return CPU(MacOSX, v, archiveBase+"cpu-darwin-x86_64-"+v+".tar.gz")
}

var known = []Variant{
	linuxCPU("1.2.0"), linuxGPU("1.2.0", "8.0", "5.1"),
	linuxCPU("1.3.0"), linuxGPU("1.3.0", "8.0", "6"),
	linuxCPU("1.4.1"), linuxGPU("1.4.1", "8.0", "6"),
	linuxCPU("1.5.0"), linuxGPU("1.5.0", "9.0", "7"),
	linuxCPU("1.6.0"), linuxGPU("1.6.0", "9.0", "7"),
	linuxCPU("1.7.0"), linuxGPU("1.7.0", "9.0", "7"),
	linuxCPU("1.8.0"), linuxGPU("1.8.0", "9.0", "7"),
	linuxCPU("1.9.0"), linuxGPU("1.9.0", "9.0", "7"),
	linuxCPU("1.10.1"), linuxGPU("1.10.1", "9.0", "7.?"),
	linuxCPU("1.11.0"), linuxGPU("1.11.0", "9.0", ">= 7.2"),
	linuxCPU("1.12.0"), linuxGPU("1.12.0", "9.0", ">= 7.2"),
	linuxCPU("1.13.1"), linuxGPU("1.13.1", "10.0", "7.4"),
	linuxCPU("1.14.0"), linuxGPU("1.14.0", "10.0", ">= 7.4.1"),
	linuxCPU("1.15.0"), linuxGPU("1.15.0", "10.1", ">= 7.5.1"),

	winCPU("1.2.0"),
	winCPU("1.3.0"),
	winCPU("1.4.1"),
	winCPU("1.5.0"),
	winCPU("1.6.0"),
	winCPU("1.7.0"),
	winCPU("1.8.0"),
	winCPU("1.9.0"),
	winCPU("1.10.0"),
	winCPU("1.11.0"),
	winGPU("1.12.0", "9.0", ">= 7.2"), winCPU("1.12.0"),
	winGPU("1.13.1", "10.0", "7.4"), winCPU("1.13.1"),
	winGPU("1.14.0", "10.0", ">= 7.4.1"), winCPU("1.14.0"),
	winGPU("1.15.0", "10.1", ">= 7.5.1"), winCPU("1.15.0"),

	macCPU("1.2.0"),
	macCPU("1.3.0"),
	macCPU("1.4.1"),
	macCPU("1.5.0"),
	macCPU("1.6.0"),
	macCPU("1.7.0"),
	macCPU("1.8.0"),
	macCPU("1.9.0"),
	macCPU("1.10.1"),
	macCPU("1.11.0"),
	macCPU("1.12.0"),
	macCPU("1.13.1"),
	macCPU("1.14.0"),
	macCPU("1.15.0"),
}

// Known returns every downloadable variant for all platforms.
func Known() []Variant {
	out := make([]Variant, len(known))
	copy(out, known)
	return out
}

// ForPlatform returns the known variants for one platform.
func ForPlatform(platform string) []Variant {
	var out []Variant
	for _, v := range known {
		if v.Platform == platform {
			out = append(out, v)
		}
	}
	return out
}

// Lookup finds the known variant equal to (ver, gpu, platform).
func Lookup(platform, ver string, gpu *bool) (Variant, bool) {
	want := Variant{Version: ver, GPU: gpu, Platform: platform}
	for _, v := range known {
		if v.Equal(want) {
			return v, true
		}
	}
	return Variant{}, false
}
