package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteSignin is the sign-in route.
	RouteSignin = "/signin"
	// RouteSignout is the sign-out route.
	RouteSignout = "/signout"

	// RouteSuffixCreate is the suffix for "create" routes.
	RouteSuffixCreate = "/create"
	// RouteSuffixReorder is the suffix for reorder routes.
	RouteSuffixReorder = "/reorder"

	// RouteParamID is the ID parameter pattern.
	RouteParamID = "/{id}"
	// RouteParamEditID is the edit ID parameter pattern.
	RouteParamEditID = "/edit/{id}"
	// RouteParamViewID is the view ID parameter pattern.
	RouteParamViewID = "/view/{id}"

	// RouteUsers is the users admin route.
	RouteUsers = "/users"
	// RouteEpapers is the editions admin route.
	RouteEpapers = "/epapers"

	// RouteUsersCreate is the user creation route pattern.
	RouteUsersCreate = RouteUsers + RouteSuffixCreate
	// RouteUsersEdit is the user edit route pattern.
	RouteUsersEdit = RouteUsers + RouteParamEditID
	// RouteUsersDelete is the user delete route pattern.
	RouteUsersDelete = RouteUsers + "/delete" + RouteParamID
	// RouteEpapersCreate is the edition creation route pattern.
	RouteEpapersCreate = RouteEpapers + RouteSuffixCreate
	// RouteEpapersEdit is the edition edit route pattern.
	RouteEpapersEdit = RouteEpapers + RouteParamEditID
	// RouteEpapersView is the edition view route pattern.
	RouteEpapersView = RouteEpapers + RouteParamViewID
	// RouteEpapersDelete is the edition delete route pattern.
	RouteEpapersDelete = RouteEpapers + "/delete" + RouteParamID
	// RouteEpapersReorder is the page-order route pattern.
	RouteEpapersReorder = RouteEpapers + RouteParamID + RouteSuffixReorder
	// RouteEpapersImageDelete is the single-page delete route pattern.
	RouteEpapersImageDelete = RouteEpapers + RouteParamID + "/images/{imageId}"
	// RouteEpapersPDF is the PDF download proxy route pattern.
	RouteEpapersPDF = RouteEpapers + RouteParamID + "/pdf"
)

const (
	redirectSignin            = RouteSignin
	redirectAdmin             = "/admin"
	redirectAdminUsers        = redirectAdmin + RouteUsers
	redirectAdminUsersCreate  = redirectAdminUsers + RouteSuffixCreate
	redirectAdminEpapers      = redirectAdmin + RouteEpapers
	redirectAdminEpapersNew   = redirectAdminEpapers + RouteSuffixCreate
	redirectAdminUsersEdit    = redirectAdminUsers + "/edit/%s"
	redirectAdminEpapersEdit  = redirectAdminEpapers + "/edit/%s"
	redirectAdminEpapersView  = redirectAdminEpapers + "/view/%s"
)

// maxUploadMemory bounds the in-memory part of multipart parsing; larger
// file parts spill to temp files.
const maxUploadMemory = 32 << 20 // 32MB
