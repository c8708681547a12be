package launcher

import "runtime"

var isWindows = runtime.GOOS == "windows"
